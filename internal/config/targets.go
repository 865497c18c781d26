package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// TargetsFromURLs turns target URLs into target entries. The scheme
// selects the kind: tcp://host:port, postgres://..., anything else is HTTP.
func TargetsFromURLs(urls []string) []map[string]interface{} {
	targets := make([]map[string]interface{}, 0, len(urls))
	for _, u := range urls {
		switch {
		case strings.HasPrefix(u, "tcp://"):
			targets = append(targets, map[string]interface{}{
				"kind":    KindTCP,
				"address": strings.TrimPrefix(u, "tcp://"),
			})
		case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
			targets = append(targets, map[string]interface{}{
				"kind": KindPostgres,
				"dsn":  u,
			})
		default:
			targets = append(targets, map[string]interface{}{
				"kind": KindHTTP,
				"url":  u,
			})
		}
	}
	return targets
}

// applyListEnv handles the two list keys AutomaticEnv cannot decode:
// WAITGATE_COMMAND is split on whitespace, WAITGATE_TARGETS is a
// comma-separated list of target URLs.
func applyListEnv(v *viper.Viper) {
	if raw, ok := os.LookupEnv(EnvPrefix + "_COMMAND"); ok {
		if fields := strings.Fields(raw); len(fields) > 0 {
			v.Set("command", fields)
		}
	}

	if raw, ok := os.LookupEnv(EnvPrefix + "_TARGETS"); ok {
		var urls []string
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			v.Set("targets", TargetsFromURLs(urls))
		}
	}
}
