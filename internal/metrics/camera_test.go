package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncFrameCaptured(t *testing.T) {
	before := testutil.ToFloat64(FramesCaptured.WithLabelValues("SN-metrics", "Mono8"))
	IncFrameCaptured("SN-metrics", "Mono8")
	IncFrameCaptured("SN-metrics", "Mono8")
	after := testutil.ToFloat64(FramesCaptured.WithLabelValues("SN-metrics", "Mono8"))
	assert.Equal(t, before+2, after)
}

func TestIncCaptureFailure(t *testing.T) {
	before := testutil.ToFloat64(CaptureFailures.WithLabelValues("SN-metrics", "timeout"))
	IncCaptureFailure("SN-metrics", "timeout")
	assert.Equal(t, before+1, testutil.ToFloat64(CaptureFailures.WithLabelValues("SN-metrics", "timeout")))
}

func TestObserveConversion(t *testing.T) {
	ObserveConversion("BayerRG8", 3*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(ConversionDuration))
}
