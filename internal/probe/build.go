package probe

import (
	"fmt"
	"time"

	"github.com/psantana5/waitgate/internal/config"
)

// Build constructs one prober per configured target.
// The config is expected to be validated already.
func Build(targets []config.Target, timeout time.Duration) ([]Prober, error) {
	probers := make([]Prober, 0, len(targets))

	for i, t := range targets {
		switch t.Kind {
		case config.KindHTTP:
			probers = append(probers, NewHTTPProber(t.URL, t.Method, timeout))
		case config.KindTCP:
			probers = append(probers, NewTCPProber(t.Address, timeout))
		case config.KindPostgres:
			probers = append(probers, NewPostgresProber(t.DSN, timeout))
		case config.KindMemory:
			probers = append(probers, NewMemoryProber(t.MinAvailableMB))
		default:
			return nil, fmt.Errorf("probe: target %d: unsupported kind %q", i, t.Kind)
		}
	}

	if len(probers) == 0 {
		return nil, fmt.Errorf("probe: at least one target required")
	}

	return probers, nil
}
