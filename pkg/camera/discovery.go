package camera

import (
	"strings"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Discovery lists cameras visible to a driver. It is passed explicitly to
// whatever opens sessions; there is no process-wide registry.
type Discovery struct {
	drv genicam.Driver
}

// NewDiscovery returns a discovery service over drv.
func NewDiscovery(drv genicam.Driver) *Discovery {
	return &Discovery{drv: drv}
}

// Enumerate returns the visible cameras. No cameras is an empty list, not
// an error.
func (d *Discovery) Enumerate() ([]genicam.Identity, error) {
	ids, st := d.drv.Enumerate()
	if !st.OK() {
		log.Warn("camera enumeration failed", log.FieldStatus, st.String())
		return nil, opErr("enumerate", "", st, ErrDiscovery)
	}
	if ids == nil {
		ids = []genicam.Identity{}
	}
	log.Debug("cameras enumerated", "count", len(ids))
	return ids, nil
}

// FindBySerial returns the visible camera with the given serial.
func (d *Discovery) FindBySerial(serial string) (genicam.Identity, error) {
	ids, err := d.Enumerate()
	if err != nil {
		return genicam.Identity{}, err
	}
	for _, id := range ids {
		if strings.EqualFold(id.Serial, serial) {
			return id, nil
		}
	}
	return genicam.Identity{}, opErr("find camera", serial, genicam.StatusOK, ErrNotFound)
}
