package poller

import (
	"context"
	"time"

	"solaredge-collector/internal/sunspec"
	"solaredge-collector/internal/transport"
)

// Device is one polled sub-device: its identity, model layout and health
// state. Ref, model and spans are immutable after construction; the mutable
// health fields are guarded by the owning gateway's lock.
type Device struct {
	Ref   DeviceRef
	model *sunspec.Model
	spans []sunspec.Span

	failures int
	status   HealthStatus
	lastGood *Snapshot
}

func newDevice(ref DeviceRef, model *sunspec.Model) *Device {
	return &Device{
		Ref:    ref,
		model:  model,
		spans:  model.Spans(transport.MaxReadRegisters),
		status: Online,
	}
}

// Model returns the device's register layout.
func (d *Device) Model() *sunspec.Model { return d.model }

// Status returns the current health state.
func (d *Device) Status() HealthStatus { return d.status }

// LastGood returns the most recent successful snapshot, surviving failed
// cycles until a fresh decode replaces it.
func (d *Device) LastGood() *Snapshot { return d.lastGood }

// Poll reads the device's model block and decodes it into a snapshot. The
// block is assembled from span reads within one cycle, so a field is never
// mixed across cycles.
func (d *Device) poll(ctx context.Context, client *transport.Client, cycle uint64) (*Snapshot, error) {
	regs := make([]uint16, d.model.Length)
	for _, sp := range d.spans {
		part, err := client.ReadHoldingRegisters(ctx, d.Ref.UnitID, d.Ref.DataAddr+sp.Offset, sp.Count)
		if err != nil {
			return nil, err
		}
		copy(regs[sp.Offset:], part)
	}

	values, err := d.model.Decode(regs)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Device: d.Ref,
		Values: values,
		Taken:  time.Now(),
		Cycle:  cycle,
	}
	return snap, nil
}

// recordSuccess resets the failure counter and returns a health event when
// the device comes back from a non-online state.
func (d *Device) recordSuccess(snap *Snapshot) (HealthEvent, bool) {
	d.lastGood = snap
	prev := d.status
	d.failures = 0
	d.status = Online
	if prev == Online {
		return HealthEvent{}, false
	}
	return HealthEvent{Device: d.Ref, Status: Online, At: time.Now()}, true
}

// recordFailure bumps the failure counter and returns a health event when
// the status changes. At threshold consecutive failures the device goes
// offline; before that it is degraded.
func (d *Device) recordFailure(err error, threshold int) (HealthEvent, bool) {
	d.failures++
	next := Degraded
	if d.failures >= threshold {
		next = Offline
	}
	changed := next != d.status
	d.status = next
	if !changed && next != Degraded {
		return HealthEvent{}, false
	}
	// Degraded repeats carry the updated count so callers can see progress
	// toward the offline threshold.
	return HealthEvent{
		Device:   d.Ref,
		Status:   next,
		Failures: d.failures,
		Err:      err,
		At:       time.Now(),
	}, changed || next == Degraded
}
