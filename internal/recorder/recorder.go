// Package recorder persists polled snapshots, discovery results and health
// transitions. Writes are queued and drained by a background worker so the
// poll loops never block on storage.
package recorder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"solaredge-collector/internal/config"
	"solaredge-collector/internal/poller"
	"solaredge-collector/internal/utils"
)

// Reading is one recorded field value.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	GatewayID string    `json:"gateway_id"`
	DeviceID  string    `json:"device_id"`
	Kind      string    `json:"kind"`
	UnitID    uint8     `json:"unit_id"`
	Field     string    `json:"field"`
	Value     float64   `json:"value"`
	Text      string    `json:"text,omitempty"`
	Available bool      `json:"available"`
}

// Recorder fans snapshot fields out to SQLite and/or a JSONL file.
type Recorder struct {
	log        *slog.Logger
	store      *Store
	jsonFile   *os.File
	jsonWriter *bufio.Writer
	cache      *utils.DedupCache

	q      chan any
	wg     sync.WaitGroup
	closed chan struct{}
}

// New opens the configured outputs and starts the background writer.
func New(cfg config.RecorderConfig, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	ft := strings.ToLower(strings.TrimSpace(cfg.FileType))
	enableDB := strings.Contains(ft, "db")
	enableJSONL := strings.Contains(ft, "jsonl")
	if !enableDB && !enableJSONL {
		return nil, fmt.Errorf("unsupported recorder file_type %q", cfg.FileType)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	r := &Recorder{
		log:    log,
		cache:  utils.NewDedupCache(cfg.DedupTTL),
		q:      make(chan any, cfg.MaxQueueSize),
		closed: make(chan struct{}),
	}

	if enableDB {
		store, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	if enableJSONL {
		path := cfg.DBPath + ".jsonl"
		if !enableDB {
			path = strings.TrimSuffix(cfg.DBPath, filepath.Ext(cfg.DBPath)) + ".jsonl"
		}
		jf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			if r.store != nil {
				r.store.Close()
			}
			return nil, fmt.Errorf("open jsonl output: %w", err)
		}
		r.jsonFile = jf
		r.jsonWriter = bufio.NewWriterSize(jf, 64*1024)
	}

	r.wg.Add(1)
	go r.drain()
	return r, nil
}

// HandleSnapshot queues every changed field of the snapshot. Unchanged
// fields inside the dedup TTL are skipped.
func (r *Recorder) HandleSnapshot(snap *poller.Snapshot) {
	deviceID := snap.Device.ID()
	for field, v := range snap.Values {
		key := deviceID + "|" + field
		if r.cache.Seen(key, v.Float(), v.Str(), v.Available()) {
			continue
		}
		rec := Reading{
			Timestamp: snap.Taken,
			GatewayID: snap.Device.GatewayID,
			DeviceID:  deviceID,
			Kind:      snap.Device.Kind.String(),
			UnitID:    snap.Device.UnitID,
			Field:     field,
			Value:     v.Float(),
			Text:      v.Str(),
			Available: v.Available(),
		}
		if err := r.enqueue(rec); err != nil {
			r.log.Warn("reading dropped", "device", deviceID, "field", field, "error", err)
			return
		}
	}
}

// HandleDiscovery queues the device inventory of a completed scan.
func (r *Recorder) HandleDiscovery(gatewayID string, refs []poller.DeviceRef) {
	// New inventory: record a full snapshot next cycle even for values that
	// match pre-rescan readings.
	r.cache.Reset()
	for _, ref := range refs {
		if err := r.enqueue(ref); err != nil {
			r.log.Warn("discovery record dropped", "gateway", gatewayID, "error", err)
			return
		}
	}
}

// HandleHealth queues a health transition.
func (r *Recorder) HandleHealth(ev poller.HealthEvent) {
	if err := r.enqueue(ev); err != nil {
		r.log.Warn("health record dropped", "device", ev.Device.ID(), "error", err)
	}
}

func (r *Recorder) enqueue(item any) error {
	select {
	case r.q <- item:
		return nil
	default:
		return errors.New("recorder queue full")
	}
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for item := range r.q {
		switch v := item.(type) {
		case Reading:
			if r.store != nil {
				if err := r.store.InsertReading(v); err != nil {
					r.log.Warn("sqlite insert failed", "error", err)
				}
			}
			if r.jsonWriter != nil {
				if err := r.writeJSONL(v); err != nil {
					r.log.Warn("jsonl write failed", "error", err)
				}
			}
		case poller.DeviceRef:
			if r.store != nil {
				if err := r.store.UpsertDevice(v); err != nil {
					r.log.Warn("sqlite device upsert failed", "error", err)
				}
			}
		case poller.HealthEvent:
			if r.store != nil {
				if err := r.store.InsertHealthEvent(v); err != nil {
					r.log.Warn("sqlite health insert failed", "error", err)
				}
			}
		}
	}
	if r.jsonWriter != nil {
		r.jsonWriter.Flush()
	}
	close(r.closed)
}

func (r *Recorder) writeJSONL(rec Reading) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := r.jsonWriter.Write(b); err != nil {
		return err
	}
	_, err = r.jsonWriter.WriteString("\n")
	return err
}

// Store exposes the underlying database for read queries, or nil when the
// db output is disabled.
func (r *Recorder) Store() *Store { return r.store }

// Close drains the queue, flushes outputs and closes files.
func (r *Recorder) Close() {
	close(r.q)
	<-r.closed
	if r.jsonFile != nil {
		r.jsonFile.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
}
