// Package poller discovers SunSpec devices behind SolarEdge gateways and
// polls them on a fixed cadence, publishing decoded snapshots and health
// transitions through callbacks.
package poller

import (
	"fmt"
	"time"

	"solaredge-collector/internal/sunspec"
)

// DeviceKind classifies a discovered sub-device.
type DeviceKind uint8

const (
	KindInverter DeviceKind = iota
	KindMeter
	KindBattery
)

func (k DeviceKind) String() string {
	switch k {
	case KindInverter:
		return "inverter"
	case KindMeter:
		return "meter"
	case KindBattery:
		return "battery"
	default:
		return "unknown"
	}
}

// DeviceRef identifies one polled sub-device and carries the identity read
// during discovery.
type DeviceRef struct {
	GatewayID string
	UnitID    uint8
	Kind      DeviceKind
	ModelID   uint16
	DataAddr  uint16 // register address of the model data block

	Manufacturer string
	Model        string
	Version      string
	Serial       string
}

// ID returns a stable identifier, serial-based when the device reported one.
func (r DeviceRef) ID() string {
	if r.Serial != "" {
		return fmt.Sprintf("%s/%s/%s", r.GatewayID, r.Kind, r.Serial)
	}
	return fmt.Sprintf("%s/%s/u%d@%d", r.GatewayID, r.Kind, r.UnitID, r.DataAddr)
}

// Snapshot is one decoded poll result for one device. Values holds every
// field of the device's model; unimplemented fields are present but
// unavailable.
type Snapshot struct {
	Device DeviceRef
	Values map[string]sunspec.Value
	Taken  time.Time
	Cycle  uint64
}

// StatusText resolves the device's numeric status to its label, if the
// snapshot carries one.
func (s *Snapshot) StatusText() string {
	if v, ok := s.Values["I_Status"]; ok && v.Available() {
		return sunspec.DeviceStatusText(uint32(v.Float()))
	}
	if v, ok := s.Values["B_Status"]; ok && v.Available() {
		return sunspec.BatteryStatusText(uint32(v.Float()))
	}
	return ""
}

// HealthStatus tracks a device's availability.
type HealthStatus uint8

const (
	Online HealthStatus = iota
	Degraded
	Offline
)

func (h HealthStatus) String() string {
	switch h {
	case Online:
		return "online"
	case Degraded:
		return "degraded"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// HealthEvent reports a device health transition.
type HealthEvent struct {
	Device   DeviceRef
	Status   HealthStatus
	Failures int
	Err      error
	At       time.Time
}

// Overrun reports a poll cycle that ran past its interval. The next cycle
// starts at the following tick; no cycles ever overlap.
type Overrun struct {
	GatewayID string
	Elapsed   time.Duration
	Interval  time.Duration
}
