package recorder

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solaredge-collector/internal/config"
	"solaredge-collector/internal/poller"
	"solaredge-collector/internal/sunspec"
)

func newTestRecorder(t *testing.T, fileType string) (*Recorder, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "readings.sqlite")
	r, err := New(config.RecorderConfig{
		Enabled:      true,
		DBPath:       dbPath,
		FileType:     fileType,
		MaxQueueSize: 100,
		DedupTTL:     time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r, dbPath
}

func testSnapshot(cycle uint64, power float64) *poller.Snapshot {
	return &poller.Snapshot{
		Device: poller.DeviceRef{
			GatewayID: "gw", UnitID: 5, Kind: poller.KindInverter,
			ModelID: 103, Serial: "7E1",
		},
		Values: map[string]sunspec.Value{
			"AC_Power":   sunspec.Num(power),
			"AC_var":     sunspec.NotAvailable,
			"C_Version":  sunspec.Text("0004.0016"),
		},
		Taken: time.Now(),
		Cycle: cycle,
	}
}

func TestRecordAndQuery(t *testing.T) {
	r, dbPath := newTestRecorder(t, "db")

	ref := poller.DeviceRef{
		GatewayID: "gw", UnitID: 5, Kind: poller.KindInverter, ModelID: 103,
		Manufacturer: "SolarEdge", Model: "SE10K", Serial: "7E1",
	}
	r.HandleDiscovery("gw", []poller.DeviceRef{ref})
	r.HandleSnapshot(testSnapshot(1, 450))
	r.HandleHealth(poller.HealthEvent{
		Device: ref, Status: poller.Degraded, Failures: 1, At: time.Now(),
	})
	r.Close()

	// Reopen the same database file for querying.
	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	devs, err := store.ListDevices()
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devs) != 1 || devs[0].Serial != "7E1" {
		t.Fatalf("devices = %+v", devs)
	}
	latest, err := store.LatestReadings(ref.ID())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 3 {
		t.Fatalf("latest fields = %d, want 3", len(latest))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readings.sqlite")
	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ref := poller.DeviceRef{
		GatewayID: "gw", UnitID: 5, Kind: poller.KindInverter, ModelID: 103,
		Manufacturer: "SolarEdge", Model: "SE10K", Serial: "7E1",
	}
	if err := store.UpsertDevice(ref); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Rediscovery refreshes rather than duplicates.
	if err := store.UpsertDevice(ref); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	devs, err := store.ListDevices()
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("devices = %d, want 1", len(devs))
	}
	if devs[0].Manufacturer != "SolarEdge" || devs[0].Serial != "7E1" {
		t.Fatalf("device row = %+v", devs[0])
	}

	now := time.Now()
	for i, v := range []float64{450, 450, 475} {
		err := store.InsertReading(Reading{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			GatewayID: "gw", DeviceID: ref.ID(), Field: "AC_Power",
			Value: v, Available: true,
		})
		if err != nil {
			t.Fatalf("insert reading: %v", err)
		}
	}
	latest, err := store.LatestReadings(ref.ID())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 1 || latest[0].Field != "AC_Power" {
		t.Fatalf("latest = %+v", latest)
	}
	if latest[0].Value != 475 {
		t.Fatalf("latest AC_Power = %v, want 475", latest[0].Value)
	}

	if err := store.InsertHealthEvent(poller.HealthEvent{
		Device: ref, Status: poller.Offline, Failures: 3, At: now,
	}); err != nil {
		t.Fatalf("insert health: %v", err)
	}
}

func TestJSONLOutput(t *testing.T) {
	r, dbPath := newTestRecorder(t, "db+jsonl")
	r.HandleSnapshot(testSnapshot(1, 450))
	// A second identical snapshot is fully deduplicated.
	r.HandleSnapshot(testSnapshot(2, 450))
	// A changed value goes through.
	r.HandleSnapshot(testSnapshot(3, 475))
	r.Close()

	f, err := os.Open(dbPath + ".jsonl")
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()

	powers := map[float64]bool{}
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
		var rec Reading
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		if rec.Field == "AC_Power" {
			powers[rec.Value] = true
		}
		if rec.Field == "AC_var" && rec.Available {
			t.Fatal("unavailable field recorded as available")
		}
	}
	// Cycle 1 contributes three fields, cycle 2 none, cycle 3 one.
	if lines != 4 {
		t.Fatalf("jsonl lines = %d, want 4", lines)
	}
	if !powers[450] || !powers[475] {
		t.Fatalf("power readings = %v", powers)
	}
}

func TestQueueOverflowDropsNotBlocks(t *testing.T) {
	dir := t.TempDir()
	r, err := New(config.RecorderConfig{
		Enabled:      true,
		DBPath:       filepath.Join(dir, "x.sqlite"),
		FileType:     "db",
		MaxQueueSize: 1,
		DedupTTL:     time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Flood; must return promptly even if the worker lags.
	donech := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			r.HandleSnapshot(testSnapshot(uint64(i), float64(i)))
		}
		close(donech)
	}()
	select {
	case <-donech:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder blocked the producer")
	}
	r.Close()
}
