// Package config reads application settings from environment variables
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"linkshell/internal/platform/logger"
)

// Conf is a namespaced view over the environment, e.g. Prefix("PIPELINE_")
type Conf struct{ prefix string }

// New returns the root view
func New() Conf { return Conf{} }

// Prefix returns a child view with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key returns the fully qualified variable name for k
func (c Conf) Key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.Key(k)))
	return v, v != ""
}

// invalid logs a bad value and hands back the default
func invalid[T any](c Conf, key, val, kind string, def T) T {
	logger.Get().Warn().
		Str("key", c.Key(key)).
		Str("value", val).
		Interface("default", def).
		Msgf("invalid %s; using default", kind)
	return def
}

// MustString panics when key is unset or blank
func (c Conf) MustString(key string) string {
	v, ok := c.lookup(key)
	if !ok {
		logger.Get().Panic().Str("key", c.Key(key)).Msg("missing required env")
	}
	return v
}

// MustInt panics when key is unset or not an integer
func (c Conf) MustInt(key string) int {
	s := c.MustString(key)
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.Key(key)).Str("value", s).Msg("invalid int value")
	}
	return v
}

// MustDuration panics when key is unset or not a Go duration
func (c Conf) MustDuration(key string) time.Duration {
	s := c.MustString(key)
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.Key(key)).Str("value", s).Msg("invalid duration (e.g., 250ms, 2s, 1h)")
	}
	return d
}

// Has reports whether key is set to a non-blank value
func (c Conf) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

// MayInt returns the value or def; invalid values are logged
func (c Conf) MayInt(key string, def int) int {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return invalid(c, key, s, "int", def)
}

// MayFloat64 returns the value or def; invalid values are logged
func (c Conf) MayFloat64(key string, def float64) float64 {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return invalid(c, key, s, "float64", def)
}

// MayBool returns the value or def; invalid values are logged
func (c Conf) MayBool(key string, def bool) bool {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return invalid(c, key, s, "bool", def)
}

// MayDuration returns the value or def; invalid values are logged
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return invalid(c, key, s, "duration", def)
}

// MayCSV splits a comma separated value, dropping blanks
func (c Conf) MayCSV(key string, def []string) []string {
	return c.MaySplit(key, ",", def)
}

// MaySplit splits on sep, dropping blanks; def when nothing is left
func (c Conf) MaySplit(key, sep string, def []string) []string {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayBoolMap parses "Say=true,Linkshell1=false" into a map; bad pairs are logged and skipped
func (c Conf) MayBoolMap(key string, def map[string]bool) map[string]bool {
	pairs := c.MayCSV(key, nil)
	if len(pairs) == 0 {
		return def
	}
	out := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if !found || err != nil || strings.TrimSpace(k) == "" {
			logger.Get().Warn().Str("key", c.Key(key)).Str("pair", p).Msg("invalid key=bool pair; skipping")
			continue
		}
		out[strings.TrimSpace(k)] = b
	}
	return out
}

// MayEnum returns the value when it is one of allowed (case-insensitive), def when unset; panics otherwise
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.Key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
