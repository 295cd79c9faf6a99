package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-optcam/pkg/genicam"
)

func connectedMock(t *testing.T) *genicam.Mock {
	t.Helper()
	drv := genicam.NewMock(testCam)
	require.True(t, drv.Connect(testCam, genicam.AccessControl).OK())
	t.Cleanup(func() { assertBalanced(t, drv) })
	return drv
}

func TestProperties_RoundTrip(t *testing.T) {
	drv := connectedMock(t)
	p := NewProperties(drv, testCam)

	require.NoError(t, p.SetInt(AttrWidth, 640))
	w, err := p.GetInt(AttrWidth)
	require.NoError(t, err)
	assert.EqualValues(t, 640, w)

	require.NoError(t, p.SetFloat(AttrExposureTime, 1234.5))
	e, err := p.GetFloat(AttrExposureTime)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, e)

	require.NoError(t, p.SetEnum(AttrTriggerMode, "On"))
	mode, err := p.GetEnum(AttrTriggerMode)
	require.NoError(t, err)
	assert.Equal(t, "On", mode)

	require.NoError(t, p.Execute(AttrTriggerSoftware))

	// one node per transaction
	assert.Equal(t, 7, drv.Acquired(genicam.ResourceNode))
	assert.Equal(t, 7, drv.Released(genicam.ResourceNode))
}

func TestProperties_NodeCreationFailure(t *testing.T) {
	drv := connectedMock(t)
	p := NewProperties(drv, testCam)

	_, err := p.GetInt("NoSuchAttr")
	require.ErrorIs(t, err, ErrNodeCreation)

	var op *OpError
	require.ErrorAs(t, err, &op)
	assert.Equal(t, "NoSuchAttr", op.Attr)
	assert.Equal(t, genicam.StatusNotAvailable, op.Status)
	assert.Zero(t, drv.Acquired(genicam.ResourceNode))
}

func TestProperties_ValueFailureReleasesNode(t *testing.T) {
	drv := connectedMock(t)
	p := NewProperties(drv, testCam)

	drv.FailOnce(genicam.OpSet, AttrExposureTime, genicam.StatusAccessDenied)
	err := p.SetFloat(AttrExposureTime, 100)
	require.ErrorIs(t, err, ErrNodeValue)
	assert.Contains(t, err.Error(), AttrExposureTime)
	assert.Equal(t, 1, drv.Released(genicam.ResourceNode))

	drv.FailOnce(genicam.OpExecute, "", genicam.StatusBusy)
	require.ErrorIs(t, p.Execute(AttrTriggerSoftware), ErrCommand)
	assert.Equal(t, 2, drv.Released(genicam.ResourceNode))
}

func TestProperties_WrongKind(t *testing.T) {
	drv := connectedMock(t)
	p := NewProperties(drv, testCam)

	// ExposureTime is a double node
	_, err := p.GetInt(AttrExposureTime)
	require.ErrorIs(t, err, ErrNodeCreation)
}
