package genicam

import "fmt"

// Status is the integer result code returned by every driver call.
type Status int32

// Status codes. Drivers may return other nonzero values; callers treat any
// nonzero Status as failure.
const (
	StatusOK             Status = 0
	StatusError          Status = -101
	StatusInvalidHandle  Status = -102
	StatusInvalidParam   Status = -103
	StatusNotConnected   Status = -104
	StatusAccessDenied   Status = -105
	StatusBusy           Status = -106
	StatusTimeout        Status = -107
	StatusNotAvailable   Status = -108
	StatusNotImplemented Status = -109
	StatusBufferTooSmall Status = -110
)

var statusNames = map[Status]string{
	StatusOK:             "ok",
	StatusError:          "error",
	StatusInvalidHandle:  "invalid handle",
	StatusInvalidParam:   "invalid parameter",
	StatusNotConnected:   "not connected",
	StatusAccessDenied:   "access denied",
	StatusBusy:           "busy",
	StatusTimeout:        "timeout",
	StatusNotAvailable:   "not available",
	StatusNotImplemented: "not implemented",
	StatusBufferTooSmall: "buffer too small",
}

// OK reports whether s is success.
func (s Status) OK() bool { return s == StatusOK }

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%s (%d)", name, int32(s))
	}
	return fmt.Sprintf("status %d", int32(s))
}
