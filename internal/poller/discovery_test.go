package poller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solaredge-collector/internal/simulator"
	"solaredge-collector/internal/sunspec"
	"solaredge-collector/internal/transport"
)

// recordingHandler captures log records so tests can assert on what the
// discovery walk reported.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) find(level slog.Level, msgPart string) (slog.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Level == level && strings.Contains(r.Message, msgPart) {
			return r, true
		}
	}
	return slog.Record{}, false
}

func TestDiscoveryReportsUnsupportedModel(t *testing.T) {
	srv := simulator.NewServer()
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	defer srv.Close()

	unit := srv.AddUnit(5)
	chain := simulator.NewChain(unit)
	chain.AppendModel(sunspec.Common, nil, map[string]string{
		"C_Manufacturer": "SolarEdge",
		"C_SerialNumber": "7E900",
	})
	// An MPPT extension block the registry does not model, wedged between
	// the identity block and the telemetry block.
	chain.Append(160, make([]uint16, 48))
	chain.AppendModel(sunspec.Inverter3P, map[string]float64{
		"AC_Power": 1200, "AC_Power_SF": 0,
	}, nil)
	chain.Terminate()

	handler := &recordingHandler{}
	client := transport.NewClient(srv.Addr(), transport.WithTimeout(time.Second))
	defer client.Close()

	devices, err := discoverUnit(context.Background(), client, slog.New(handler), "gw", 5, true)
	require.NoError(t, err)

	// The unknown block is excluded, but the chain walk continues past it.
	require.Len(t, devices, 1)
	assert.Equal(t, KindInverter, devices[0].Ref.Kind)
	assert.Equal(t, "7E900", devices[0].Ref.Serial)

	rec, found := handler.find(slog.LevelWarn, "unsupported model")
	require.True(t, found, "exclusion was not reported")
	errored := false
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			errored = strings.Contains(a.Value.String(), "160")
		}
		return true
	})
	assert.True(t, errored, "report does not carry the model id")
}
