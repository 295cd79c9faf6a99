package camera

import (
	"github.com/rs/zerolog"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Attribute names used by this package.
const (
	AttrExposureTime      = "ExposureTime"
	AttrWidth             = "Width"
	AttrHeight            = "Height"
	AttrWidthMax          = "WidthMax"
	AttrHeightMax         = "HeightMax"
	AttrOffsetX           = "OffsetX"
	AttrOffsetY           = "OffsetY"
	AttrPixelFormat       = "PixelFormat"
	AttrTriggerMode       = "TriggerMode"
	AttrTriggerSource     = "TriggerSource"
	AttrTriggerSelector   = "TriggerSelector"
	AttrTriggerActivation = "TriggerActivation"
	AttrTriggerSoftware   = "TriggerSoftware"
)

// Properties performs typed get/set/execute transactions against one
// camera's attributes. Each transaction creates a node, uses it once and
// releases it before returning; nodes are never cached.
type Properties struct {
	drv genicam.Driver
	cam genicam.Identity
	log zerolog.Logger
}

// NewProperties binds a property accessor to a connected camera.
func NewProperties(drv genicam.Driver, cam genicam.Identity) *Properties {
	return &Properties{
		drv: drv,
		cam: cam,
		log: log.WithComponent("properties").With().Str(log.FieldSerial, cam.Serial).Logger(),
	}
}

// with runs fn against a freshly created node and releases the node on
// every path.
func (p *Properties) with(kind genicam.NodeKind, attr string, fn func(genicam.Node) error) error {
	node, st := p.drv.CreateNode(kind, p.cam, attr)
	if !st.OK() || node == nil {
		if node != nil {
			p.releaseNode(node, attr)
		}
		if st.OK() {
			st = genicam.StatusInvalidHandle
		}
		p.log.Warn().Str(log.FieldAttr, attr).Stringer(log.FieldStatus, st).Msg("create node failed")
		return opErr("create "+kind.String()+" node", attr, st, ErrNodeCreation)
	}
	defer p.releaseNode(node, attr)
	return fn(node)
}

func (p *Properties) releaseNode(node genicam.Node, attr string) {
	if st := node.Release(); !st.OK() {
		p.log.Warn().Str(log.FieldAttr, attr).Stringer(log.FieldStatus, st).Msg("release node failed")
	}
}

func (p *Properties) valueErr(op, attr string, value any, st genicam.Status) error {
	p.log.Warn().Str(log.FieldAttr, attr).Interface(log.FieldValue, value).
		Stringer(log.FieldStatus, st).Msg(op + " failed")
	return opErr(op, attr, st, ErrNodeValue)
}

// GetInt reads an integer attribute.
func (p *Properties) GetInt(attr string) (int64, error) {
	var v int64
	err := p.with(genicam.NodeInt, attr, func(n genicam.Node) error {
		var st genicam.Status
		if v, st = n.GetInt(); !st.OK() {
			return p.valueErr("get", attr, nil, st)
		}
		return nil
	})
	return v, err
}

// SetInt writes an integer attribute.
func (p *Properties) SetInt(attr string, v int64) error {
	return p.with(genicam.NodeInt, attr, func(n genicam.Node) error {
		if st := n.SetInt(v); !st.OK() {
			return p.valueErr("set", attr, v, st)
		}
		p.log.Debug().Str(log.FieldAttr, attr).Int64(log.FieldValue, v).Msg("set int")
		return nil
	})
}

// GetFloat reads a floating-point attribute.
func (p *Properties) GetFloat(attr string) (float64, error) {
	var v float64
	err := p.with(genicam.NodeDouble, attr, func(n genicam.Node) error {
		var st genicam.Status
		if v, st = n.GetDouble(); !st.OK() {
			return p.valueErr("get", attr, nil, st)
		}
		return nil
	})
	return v, err
}

// SetFloat writes a floating-point attribute.
func (p *Properties) SetFloat(attr string, v float64) error {
	return p.with(genicam.NodeDouble, attr, func(n genicam.Node) error {
		if st := n.SetDouble(v); !st.OK() {
			return p.valueErr("set", attr, v, st)
		}
		p.log.Debug().Str(log.FieldAttr, attr).Float64(log.FieldValue, v).Msg("set float")
		return nil
	})
}

// GetEnum reads the current symbol of an enumeration attribute.
func (p *Properties) GetEnum(attr string) (string, error) {
	var v string
	err := p.with(genicam.NodeEnum, attr, func(n genicam.Node) error {
		var st genicam.Status
		if v, st = n.GetSymbol(); !st.OK() {
			return p.valueErr("get", attr, nil, st)
		}
		return nil
	})
	return v, err
}

// SetEnum selects an enumeration entry by symbol.
func (p *Properties) SetEnum(attr, symbol string) error {
	return p.with(genicam.NodeEnum, attr, func(n genicam.Node) error {
		if st := n.SetSymbol(symbol); !st.OK() {
			return p.valueErr("set", attr, symbol, st)
		}
		p.log.Debug().Str(log.FieldAttr, attr).Str(log.FieldValue, symbol).Msg("set enum")
		return nil
	})
}

// Execute runs a command attribute once.
func (p *Properties) Execute(attr string) error {
	return p.with(genicam.NodeCommand, attr, func(n genicam.Node) error {
		if st := n.Execute(); !st.OK() {
			p.log.Warn().Str(log.FieldAttr, attr).Stringer(log.FieldStatus, st).Msg("execute failed")
			return opErr("execute", attr, st, ErrCommand)
		}
		return nil
	})
}
