// Package genicam describes the vendor driver surface consumed by go-optcam.
//
// The driver exposes cameras through a GenICam-style node map: every camera
// attribute is reached by creating a typed node, using it once and releasing
// it. Streams, frames and event subscriptions follow the same
// create/use/release discipline. Every call reports an integer Status where
// zero means success.
//
// Nothing in this package talks to hardware. A real binding (usually cgo over
// the vendor SDK) implements Driver; Mock implements it in memory.
package genicam

import "fmt"

// AccessLevel is the permission requested when connecting to a camera.
type AccessLevel int

const (
	AccessReadOnly AccessLevel = iota
	AccessControl
	AccessExclusive
)

func (a AccessLevel) String() string {
	switch a {
	case AccessReadOnly:
		return "read-only"
	case AccessControl:
		return "control"
	case AccessExclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// NodeKind is the value type of a property node.
type NodeKind int

const (
	NodeEnum NodeKind = iota
	NodeInt
	NodeDouble
	NodeCommand
)

func (k NodeKind) String() string {
	switch k {
	case NodeEnum:
		return "enum"
	case NodeInt:
		return "int"
	case NodeDouble:
		return "double"
	case NodeCommand:
		return "command"
	default:
		return fmt.Sprintf("node(%d)", int(k))
	}
}

// GrabStrategy selects how the driver queues frames while grabbing.
type GrabStrategy int

const (
	// GrabSequential delivers frames in acquisition order.
	GrabSequential GrabStrategy = iota
	// GrabLatestImage keeps only the newest frame.
	GrabLatestImage
)

// Identity describes a camera found by discovery. It is immutable.
type Identity struct {
	Key    string // driver-assigned key
	Vendor string
	Model  string
	Serial string
}

// String returns a short label for logs.
func (id Identity) String() string {
	if id.Serial != "" {
		return id.Model + "#" + id.Serial
	}
	return id.Key
}

// Describe returns a multi-line description of the camera.
func (id Identity) Describe() string {
	info := fmt.Sprintf("Key           = %s\n", id.Key)
	info += fmt.Sprintf("vendor name   = %s\n", id.Vendor)
	info += fmt.Sprintf("Model  name   = %s\n", id.Model)
	info += fmt.Sprintf("Serial number = %s\n", id.Serial)
	return info
}

// Driver is the vendor driver.
type Driver interface {
	// Enumerate lists the cameras currently visible to the driver.
	Enumerate() ([]Identity, Status)

	Connect(cam Identity, access AccessLevel) Status
	Disconnect(cam Identity) Status

	// CreateNode returns a node bound to one named attribute.
	CreateNode(kind NodeKind, cam Identity, attr string) (Node, Status)

	// CreateSubscription returns a handle used to (un)register event callbacks.
	// Registrations outlive the handle.
	CreateSubscription(cam Identity) (Subscription, Status)

	// CreateStreamSource opens a data channel for one camera.
	CreateStreamSource(cam Identity, channel int) (Stream, Status)
}

// Node is a typed handle to one camera attribute. Only the accessors
// matching the node's kind are meaningful.
type Node interface {
	GetInt() (int64, Status)
	SetInt(v int64) Status
	GetDouble() (float64, Status)
	SetDouble(v float64) Status
	GetSymbol() (string, Status)
	SetSymbol(symbol string) Status
	Execute() Status
	Release() Status
}

// LinkEventType is the kind of a connection status change.
type LinkEventType int

const (
	LinkOffline LinkEventType = iota
	LinkOnline
)

func (t LinkEventType) String() string {
	if t == LinkOnline {
		return "online"
	}
	return "offline"
}

// LinkEvent is delivered when a camera's link goes up or down.
type LinkEvent struct {
	Type LinkEventType
	Key  string // camera key
}

// LinkCallback runs on a driver-owned goroutine. userToken is the opaque
// token supplied at registration.
type LinkCallback func(ev LinkEvent, userToken string)

// Subscription registers link callbacks for one camera.
type Subscription interface {
	SubscribeLink(cb LinkCallback, userToken string) Status
	UnsubscribeLink(userToken string) Status
	Release() Status
}

// Stream is an open acquisition channel.
type Stream interface {
	StartGrabbing(strategy GrabStrategy) Status
	StopGrabbing() Status
	// GetFrame blocks up to timeoutMs. A non-nil Frame returned together with
	// a failure status is partially initialised and must still be released.
	GetFrame(timeoutMs uint32) (Frame, Status)
	Release() Status
}

// Frame is one acquisition result. The slice returned by Image is owned by
// the driver and is only valid until Release.
type Frame interface {
	Valid() Status
	BlockID() uint64
	ImageSize() int
	Width() int
	Height() int
	PaddingX() int
	PaddingY() int
	PixelFormat() PixelFormat
	Image() []byte
	Release() Status
}

// ImageDescriptor is the metadata copied out of a Frame to drive conversion.
type ImageDescriptor struct {
	DataSize    int
	Width       int
	Height      int
	PaddingX    int
	PaddingY    int
	PixelFormat PixelFormat
}

// Describe copies the descriptor fields out of f.
func Describe(f Frame) ImageDescriptor {
	return ImageDescriptor{
		DataSize:    f.ImageSize(),
		Width:       f.Width(),
		Height:      f.Height(),
		PaddingX:    f.PaddingX(),
		PaddingY:    f.PaddingY(),
		PixelFormat: f.PixelFormat(),
	}
}

// Converter is the vendor image conversion service. out must hold at least
// Height*Width*3 bytes; the number of bytes written is returned.
type Converter interface {
	ConvertToBGR24(raw []byte, desc ImageDescriptor, out []byte) (int, Status)
}
