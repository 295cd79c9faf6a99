// Package metrics exposes prometheus instrumentation for camera sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesCaptured counts decoded images handed to callers.
	FramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optcam_frames_captured_total",
		Help: "Frames captured and decoded, by camera serial and source pixel format",
	}, []string{"serial", "format"})

	// CaptureFailures counts failed capture attempts by reason
	// (timeout, invalid_frame, conversion, stream).
	CaptureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optcam_capture_failures_total",
		Help: "Failed capture attempts by camera serial and reason",
	}, []string{"serial", "reason"})

	// ConversionDuration tracks time spent in the BGR24 conversion service.
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optcam_conversion_duration_seconds",
		Help:    "Time spent converting raw frames to BGR24",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"format"})

	// LinkEvents counts camera online/offline notifications.
	LinkEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optcam_link_events_total",
		Help: "Camera link status changes by serial and new state",
	}, []string{"serial", "state"})

	// SessionsActive is the number of connected camera sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optcam_sessions_active",
		Help: "Connected camera sessions",
	})

	// StreamsActive is the number of grabbing stream sources.
	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optcam_streams_active",
		Help: "Stream sources currently grabbing",
	})
)

// IncFrameCaptured records a successfully decoded frame.
func IncFrameCaptured(serial, format string) {
	FramesCaptured.WithLabelValues(serial, format).Inc()
}

// IncCaptureFailure records a failed capture.
func IncCaptureFailure(serial, reason string) {
	CaptureFailures.WithLabelValues(serial, reason).Inc()
}

// ObserveConversion records the conversion latency for a source format.
func ObserveConversion(format string, d time.Duration) {
	ConversionDuration.WithLabelValues(format).Observe(d.Seconds())
}

// IncLinkEvent records a link state change.
func IncLinkEvent(serial, state string) {
	LinkEvents.WithLabelValues(serial, state).Inc()
}
