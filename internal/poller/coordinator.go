package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"solaredge-collector/internal/config"
	"solaredge-collector/internal/sunspec"
	"solaredge-collector/internal/transport"
)

// Coordinator runs one polling loop per configured gateway. Devices behind
// the same gateway share its TCP connection and are polled sequentially;
// separate gateways run fully independently.
type Coordinator struct {
	log *slog.Logger

	// Callbacks fire from gateway goroutines; handlers must either be fast
	// or hand off to their own queue. All unset callbacks are skipped.
	OnSnapshot  func(*Snapshot)
	OnHealth    func(HealthEvent)
	OnDiscovery func(gatewayID string, devices []DeviceRef)
	OnOverrun   func(Overrun)

	gateways map[string]*gateway
}

type gateway struct {
	spec   config.Gateway
	client *transport.Client
	log    *slog.Logger

	rescan chan struct{}

	// mu serializes register traffic per device step: a control write never
	// lands between the span reads of one device's poll.
	mu         sync.Mutex
	devices    []*Device
	discovered bool
	hasStorage bool
	cycle      uint64
}

// New builds a coordinator from gateway specs. Callbacks may be assigned
// before Run is called.
func New(specs []config.Gateway, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		log:      log,
		gateways: make(map[string]*gateway, len(specs)),
	}
	for _, spec := range specs {
		c.gateways[spec.ID] = &gateway{
			spec: spec,
			client: transport.NewClient(spec.Addr(),
				transport.WithTimeout(spec.Timeout),
				transport.WithLogger(log)),
			log:    log.With("gateway", spec.ID),
			rescan: make(chan struct{}, 1),
		}
	}
	return c
}

// Run polls until ctx is cancelled. It blocks; the error is always nil today
// but reserved for startup failures.
func (c *Coordinator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, g := range c.gateways {
		wg.Add(1)
		go func(g *gateway) {
			defer wg.Done()
			c.runGateway(ctx, g)
		}(g)
	}
	wg.Wait()
	return nil
}

func (c *Coordinator) runGateway(ctx context.Context, g *gateway) {
	defer g.client.Close()

	ticker := time.NewTicker(g.spec.PollInterval)
	defer ticker.Stop()

	// Immediate first cycle.
	c.runCycle(ctx, g)

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.rescan:
			g.mu.Lock()
			g.discovered = false
			g.mu.Unlock()
			c.runCycle(ctx, g)
		case <-ticker.C:
			c.runCycle(ctx, g)
		}
	}
}

// runCycle discovers devices if needed, then polls each one in turn. A
// cycle that outlasts the interval is reported; the ticker naturally drops
// the missed tick, so cycles never overlap.
func (c *Coordinator) runCycle(ctx context.Context, g *gateway) {
	start := time.Now()

	g.mu.Lock()
	needDiscovery := !g.discovered
	g.mu.Unlock()
	if needDiscovery {
		c.discoverGateway(ctx, g)
	}

	g.mu.Lock()
	devices := g.devices
	g.cycle++
	cycle := g.cycle
	g.mu.Unlock()

	for _, d := range devices {
		if ctx.Err() != nil {
			return
		}
		c.pollDevice(ctx, g, d, cycle)
	}

	if elapsed := time.Since(start); elapsed > g.spec.PollInterval {
		g.log.Warn("poll cycle overran its interval",
			"elapsed", elapsed, "interval", g.spec.PollInterval)
		if c.OnOverrun != nil {
			c.OnOverrun(Overrun{
				GatewayID: g.spec.ID,
				Elapsed:   elapsed,
				Interval:  g.spec.PollInterval,
			})
		}
	}
}

// pollDevice reads and publishes one device. The gateway lock covers the
// span reads and the health/snapshot bookkeeping, so control writes cannot
// interleave with a poll and ReadField never observes a half-updated device.
// Callbacks fire outside the lock.
func (c *Coordinator) pollDevice(ctx context.Context, g *gateway, d *Device, cycle uint64) {
	g.mu.Lock()
	snap, err := d.poll(ctx, g.client, cycle)
	var ev HealthEvent
	var report bool
	var failures int
	if err != nil {
		ev, report = d.recordFailure(err, g.spec.FailureThreshold)
		failures = d.failures
	} else {
		ev, report = d.recordSuccess(snap)
	}
	g.mu.Unlock()

	if err != nil {
		g.log.Warn("device poll failed",
			"device", d.Ref.ID(), "failures", failures, "error", err)
		if report && c.OnHealth != nil {
			c.OnHealth(ev)
		}
		return
	}

	if report {
		g.log.Info("device recovered", "device", d.Ref.ID())
		if c.OnHealth != nil {
			c.OnHealth(ev)
		}
	}
	if c.OnSnapshot != nil {
		c.OnSnapshot(snap)
	}
}

// discoverGateway scans every expected unit ID. A unit that faults during
// its scan is simply absent until the next rescan; the others still come up.
func (c *Coordinator) discoverGateway(ctx context.Context, g *gateway) {
	spec := g.spec
	var devices []*Device
	for i := 0; i < spec.InverterCount; i++ {
		unitID := spec.BaseUnitID + uint8(i)
		found, err := discoverUnit(ctx, g.client, g.log, spec.ID, unitID, spec.DetectExtras)
		if err != nil {
			g.log.Warn("unit scan failed", "unit", unitID, "error", err)
			continue
		}
		devices = append(devices, found...)
	}

	hasStorage := false
	if spec.StorageControl && len(devices) > 0 {
		ok, err := hasStorageControl(ctx, g.client, spec.BaseUnitID)
		if err != nil {
			g.log.Warn("storage control probe failed", "error", err)
		}
		hasStorage = ok
	}

	g.mu.Lock()
	g.devices = devices
	g.hasStorage = hasStorage
	g.discovered = len(devices) > 0
	g.mu.Unlock()

	if len(devices) == 0 {
		g.log.Warn("no devices discovered, will retry next cycle")
		return
	}

	refs := make([]DeviceRef, len(devices))
	for i, d := range devices {
		refs[i] = d.Ref
	}
	g.log.Info("discovery complete", "devices", len(refs), "storage_control", hasStorage)
	if c.OnDiscovery != nil {
		c.OnDiscovery(spec.ID, refs)
	}
}

// Rescan schedules a fresh discovery pass for the gateway before its next
// cycle. Devices that vanished are dropped; new ones start polling.
func (c *Coordinator) Rescan(gatewayID string) error {
	g, ok := c.gateways[gatewayID]
	if !ok {
		return fmt.Errorf("unknown gateway %q", gatewayID)
	}
	select {
	case g.rescan <- struct{}{}:
	default:
	}
	return nil
}

// Devices returns the refs of the gateway's currently polled devices.
func (c *Coordinator) Devices(gatewayID string) ([]DeviceRef, error) {
	g, ok := c.gateways[gatewayID]
	if !ok {
		return nil, fmt.Errorf("unknown gateway %q", gatewayID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	refs := make([]DeviceRef, len(g.devices))
	for i, d := range g.devices {
		refs[i] = d.Ref
	}
	return refs, nil
}

// HasStorageControl reports whether the gateway exposed the vendor storage
// block during its last discovery.
func (c *Coordinator) HasStorageControl(gatewayID string) bool {
	g, ok := c.gateways[gatewayID]
	if !ok {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasStorage
}

// ReadField returns the named field from the device's last good snapshot.
// A field the device has never reported comes back unavailable, not as an
// error; errors are reserved for unknown devices.
func (c *Coordinator) ReadField(deviceID, field string) (sunspec.Value, error) {
	d, g, err := c.findDevice(deviceID)
	if err != nil {
		return sunspec.NotAvailable, err
	}
	// The published snapshot is swapped by the poll loop under the gateway
	// lock; read it under the same lock.
	g.mu.Lock()
	snap := d.LastGood()
	g.mu.Unlock()
	if snap == nil {
		return sunspec.NotAvailable, nil
	}
	v, ok := snap.Values[field]
	if !ok {
		return sunspec.NotAvailable, nil
	}
	return v, nil
}

// WriteField validates value against the device model's field declaration
// and writes the encoded registers. Every telemetry model is read-only, so
// this surfaces a ValidationError for anything but the writable vendor
// fields; validation always runs before any register traffic.
func (c *Coordinator) WriteField(ctx context.Context, deviceID, field string, value float64) error {
	d, g, err := c.findDevice(deviceID)
	if err != nil {
		return err
	}
	offset, regs, err := d.Model().EncodeField(field, value)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	addr := d.Ref.DataAddr + offset
	if len(regs) == 1 {
		err = g.client.WriteRegister(ctx, d.Ref.UnitID, addr, regs[0])
	} else {
		err = g.client.WriteRegisters(ctx, d.Ref.UnitID, addr, regs)
	}
	if err != nil {
		return err
	}
	g.log.Info("field written", "device", deviceID, "field", field, "value", value)
	return nil
}

func (c *Coordinator) findDevice(deviceID string) (*Device, *gateway, error) {
	for _, g := range c.gateways {
		g.mu.Lock()
		for _, d := range g.devices {
			if d.Ref.ID() == deviceID {
				g.mu.Unlock()
				return d, g, nil
			}
		}
		g.mu.Unlock()
	}
	return nil, nil, fmt.Errorf("unknown device %q", deviceID)
}

// ReadStorageControl reads and decodes the gateway's storage command block.
func (c *Coordinator) ReadStorageControl(ctx context.Context, gatewayID string) (map[string]sunspec.Value, error) {
	g, err := c.storageGateway(gatewayID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	regs, err := g.client.ReadHoldingRegisters(ctx, g.spec.BaseUnitID,
		sunspec.StorageControlAddress, sunspec.StorageControl.Length)
	if err != nil {
		return nil, err
	}
	return sunspec.StorageControl.Decode(regs)
}

// WriteStorageControl validates value against the field's declared range and
// writes it to the storage command block. Validation failures reject the
// write before any register traffic.
func (c *Coordinator) WriteStorageControl(ctx context.Context, gatewayID, field string, value float64) error {
	g, err := c.storageGateway(gatewayID)
	if err != nil {
		return err
	}
	offset, regs, err := sunspec.StorageControl.EncodeField(field, value)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	addr := sunspec.StorageControlAddress + offset
	if len(regs) == 1 {
		err = g.client.WriteRegister(ctx, g.spec.BaseUnitID, addr, regs[0])
	} else {
		err = g.client.WriteRegisters(ctx, g.spec.BaseUnitID, addr, regs)
	}
	if err != nil {
		return err
	}
	g.log.Info("storage control written", "field", field, "value", value)
	return nil
}

func (c *Coordinator) storageGateway(gatewayID string) (*gateway, error) {
	g, ok := c.gateways[gatewayID]
	if !ok {
		return nil, fmt.Errorf("unknown gateway %q", gatewayID)
	}
	if !g.spec.StorageControl {
		return nil, fmt.Errorf("gateway %q has storage control disabled", gatewayID)
	}
	return g, nil
}
