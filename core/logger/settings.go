package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	coreconfig "github.com/m3rciful/creatorbot/core/config"
)

type format int

const (
	formatJSON format = iota
	formatKV
)

type settings struct {
	level     slog.Level
	format    format
	order     []string
	sampleNum int
	sampleDen int
	file      string
	profile   string
	trace     bool
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		order:     defaultOrder,
		sampleNum: 1,
		sampleDen: 50,
		profile:   "prod",
		trace:     truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE")),
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	if s.profile == "dev" || s.profile == "debug" {
		s.format = formatKV
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "json":
		s.format = formatJSON
	case "kv", "text", "pretty":
		s.format = formatKV
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		s.sampleNum, s.sampleDen = parseRatio(ratio)
	}
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// parseRatio reads "n/d" or "d" (meaning 1/d). Anything unparsable or
// non-positive disables sampling.
func parseRatio(ratio string) (int, int) {
	num, den := "1", ratio
	if i := strings.IndexByte(ratio, '/'); i >= 0 {
		num, den = ratio[:i], ratio[i+1:]
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0
	}
	return n, d
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
