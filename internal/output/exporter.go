package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"solaredge-collector/internal/recorder"
)

// Snapshot pairs a recorded device with the newest value of each of its
// fields, as pulled from the readings database.
type Snapshot struct {
	Device   recorder.DeviceRow   `json:"device"`
	Readings []recorder.LatestRow `json:"readings"`
}

// Collect builds one snapshot per recorded device. When deviceID is
// non-empty only that device is exported.
func Collect(store *recorder.Store, deviceID string) ([]Snapshot, error) {
	devices, err := store.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	snaps := make([]Snapshot, 0, len(devices))
	for _, d := range devices {
		if deviceID != "" && d.DeviceID != deviceID {
			continue
		}
		readings, err := store.LatestReadings(d.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("latest readings for %s: %w", d.DeviceID, err)
		}
		snaps = append(snaps, Snapshot{Device: d, Readings: readings})
	}
	if deviceID != "" && len(snaps) == 0 {
		return nil, fmt.Errorf("device %s not found", deviceID)
	}
	return snaps, nil
}

// WriteJSON writes snapshots as pretty-printed JSON.
func WriteJSON(w io.Writer, snaps []Snapshot) error {
	b, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV flattens snapshots to one row per device field.
// Columns: device_id,gateway_id,kind,serial,field,value,text,available,timestamp
func WriteCSV(w io.Writer, snaps []Snapshot) error {
	cw := csv.NewWriter(w)

	headers := []string{"device_id", "gateway_id", "kind", "serial", "field", "value", "text", "available", "timestamp"}
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, s := range snaps {
		for _, r := range s.Readings {
			var value string
			if r.Available && r.Text == "" {
				value = strconv.FormatFloat(r.Value, 'g', -1, 64)
			}
			rec := []string{
				s.Device.DeviceID,
				s.Device.GatewayID,
				s.Device.Kind,
				s.Device.Serial,
				r.Field,
				value,
				r.Text,
				strconv.FormatBool(r.Available),
				r.Timestamp,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile renders snapshots to path in the format implied by fn.
func WriteFile(path string, snaps []Snapshot, fn func(io.Writer, []Snapshot) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return fn(f, snaps)
}
