package poller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solaredge-collector/internal/sunspec"
)

func testDevice() *Device {
	return newDevice(DeviceRef{
		GatewayID: "gw", UnitID: 5, Kind: KindInverter, ModelID: 103, Serial: "S1",
	}, sunspec.Inverter3P)
}

func TestHealthTransitions(t *testing.T) {
	d := testDevice()
	errRead := errors.New("read timeout")

	assert.Equal(t, Online, d.Status())

	ev, report := d.recordFailure(errRead, 3)
	require.True(t, report)
	assert.Equal(t, Degraded, ev.Status)
	assert.Equal(t, 1, ev.Failures)

	ev, report = d.recordFailure(errRead, 3)
	require.True(t, report)
	assert.Equal(t, Degraded, ev.Status)
	assert.Equal(t, 2, ev.Failures)

	ev, report = d.recordFailure(errRead, 3)
	require.True(t, report)
	assert.Equal(t, Offline, ev.Status)
	assert.Equal(t, 3, ev.Failures)

	// Still offline: no further events.
	_, report = d.recordFailure(errRead, 3)
	assert.False(t, report)

	// A good poll brings it straight back online.
	snap := &Snapshot{Device: d.Ref}
	ev, report = d.recordSuccess(snap)
	require.True(t, report)
	assert.Equal(t, Online, ev.Status)
	assert.Equal(t, Online, d.Status())

	// Online to online is silent.
	_, report = d.recordSuccess(snap)
	assert.False(t, report)
}

func TestLastGoodSurvivesFailures(t *testing.T) {
	d := testDevice()
	snap := &Snapshot{Device: d.Ref, Cycle: 7}
	d.recordSuccess(snap)

	d.recordFailure(errors.New("timeout"), 3)
	d.recordFailure(errors.New("timeout"), 3)
	d.recordFailure(errors.New("timeout"), 3)

	require.NotNil(t, d.LastGood())
	assert.Equal(t, uint64(7), d.LastGood().Cycle)
}

func TestDeviceID(t *testing.T) {
	d := testDevice()
	assert.Equal(t, "gw/inverter/S1", d.Ref.ID())

	anon := DeviceRef{GatewayID: "gw", UnitID: 5, Kind: KindMeter, DataAddr: 40190}
	assert.Equal(t, "gw/meter/u5@40190", anon.ID())
}
