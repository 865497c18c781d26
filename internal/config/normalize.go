package config

import "strings"

// Normalize canonicalizes case and whitespace and fills per-target defaults.
// It does not reject anything; Validate does that afterwards.
func Normalize(cfg *Config) {
	for i := range cfg.Targets {
		t := &cfg.Targets[i]

		t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))
		t.URL = strings.TrimSpace(t.URL)
		t.Address = strings.TrimSpace(t.Address)
		t.Method = strings.ToUpper(strings.TrimSpace(t.Method))

		// A bare URL is an HTTP target.
		if t.Kind == "" && t.URL != "" {
			t.Kind = KindHTTP
		}
		if t.Kind == KindHTTP && t.Method == "" {
			t.Method = "GET"
		}
	}

	// Comma-separated env overrides can leave empty items behind.
	cmd := cfg.Command[:0]
	for _, part := range cfg.Command {
		if part = strings.TrimSpace(part); part != "" {
			cmd = append(cmd, part)
		}
	}
	cfg.Command = cmd

	cfg.Launch.Mode = strings.ToLower(strings.TrimSpace(cfg.Launch.Mode))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}
