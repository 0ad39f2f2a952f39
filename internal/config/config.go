package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Root configuration for the collector. This mirrors config/config.yaml.

type Root struct {
	Log      LogConfig      `yaml:"log"`
	Recorder RecorderConfig `yaml:"recorder"`
	Gateways []Gateway      `yaml:"gateways"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type RecorderConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DBPath       string        `yaml:"db_path"`
	FileType     string        `yaml:"file_type"` // db | jsonl | db+jsonl
	MaxQueueSize int           `yaml:"max_queue_size"`
	DedupTTL     time.Duration `yaml:"dedup_ttl"`
}

// Gateway describes one SolarEdge leader inverter endpoint and the devices
// expected behind it.
type Gateway struct {
	ID               string        `yaml:"id"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	BaseUnitID       uint8         `yaml:"base_unit_id"`
	InverterCount    int           `yaml:"inverter_count"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	DetectExtras     bool          `yaml:"detect_extras"` // meters and batteries in the chain
	StorageControl   bool          `yaml:"storage_control"`
}

// Addr returns the gateway endpoint as host:port.
func (g Gateway) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// Load reads and validates a YAML config file, applying defaults.
func Load(path string) (Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Root{}, err
	}
	return Parse(b)
}

// Parse unmarshals raw YAML config bytes, applying defaults and validation.
func Parse(b []byte) (Root, error) {
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Root{}, err
	}

	// Defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Recorder.FileType == "" {
		cfg.Recorder.FileType = "db"
	}
	if cfg.Recorder.MaxQueueSize <= 0 {
		cfg.Recorder.MaxQueueSize = 1000
	}
	if cfg.Recorder.DedupTTL <= 0 {
		cfg.Recorder.DedupTTL = time.Hour
	}
	if cfg.Recorder.Enabled && cfg.Recorder.DBPath == "" {
		cfg.Recorder.DBPath = "data/solaredge.sqlite"
	}
	for i := range cfg.Gateways {
		g := &cfg.Gateways[i]
		if g.Port == 0 {
			g.Port = 1502
		}
		if g.BaseUnitID == 0 {
			g.BaseUnitID = 1
		}
		if g.InverterCount <= 0 {
			g.InverterCount = 1
		}
		if g.PollInterval <= 0 {
			g.PollInterval = 5 * time.Second
		}
		if g.Timeout <= 0 {
			g.Timeout = 5 * time.Second
		}
		if g.FailureThreshold <= 0 {
			g.FailureThreshold = 3
		}
	}

	// Basic validation
	if len(cfg.Gateways) == 0 {
		return Root{}, fmt.Errorf("no gateways configured")
	}
	seen := make(map[string]bool, len(cfg.Gateways))
	for _, g := range cfg.Gateways {
		if g.ID == "" {
			return Root{}, fmt.Errorf("gateway without id")
		}
		if seen[g.ID] {
			return Root{}, fmt.Errorf("duplicate gateway id %q", g.ID)
		}
		seen[g.ID] = true
		if g.Host == "" {
			return Root{}, fmt.Errorf("gateway %s: host is required", g.ID)
		}
		if g.InverterCount > 32 {
			return Root{}, fmt.Errorf("gateway %s: inverter_count %d exceeds 32", g.ID, g.InverterCount)
		}
		if int(g.BaseUnitID)+g.InverterCount-1 > 247 {
			return Root{}, fmt.Errorf("gateway %s: unit ids exceed the modbus range", g.ID)
		}
	}
	switch cfg.Recorder.FileType {
	case "db", "jsonl", "db+jsonl", "jsonl+db":
	default:
		return Root{}, fmt.Errorf("unknown recorder.file_type %q (expected db, jsonl or db+jsonl)", cfg.Recorder.FileType)
	}
	return cfg, nil
}
