package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// handler renders records as one JSON object or one key=value line with a
// stable key order.
type handler struct {
	level  slog.Leveler
	sink   *lineSink
	format format
	rank   map[string]int
	preset map[string]any
	group  string
}

func newHandler(level slog.Leveler, sink *lineSink, f format, order []string) *handler {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	return &handler{level: level, sink: sink, format: f, rank: rank}
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.preset = make(map[string]any, len(h.preset)+len(attrs))
	for k, v := range h.preset {
		c.preset[k] = v
	}
	for _, a := range attrs {
		put(c.preset, h.group, a)
	}
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = joinKey(h.group, name)
	return &c
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.preset)+r.NumAttrs()+8)
	for k, v := range h.preset {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		put(fields, h.group, a)
		return true
	})

	ts := r.Time.UTC()
	fields[keyTime] = ts.Format("2006-01-02T15:04:05.000Z07:00")
	fields[keyLevel] = levelName(r.Level)
	if h.format == formatJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	if _, ok := fields[keyEvent]; !ok {
		fields[keyEvent] = orDefault(r.Message, "unknown")
	}
	if _, ok := fields[keyComponent]; !ok {
		fields[keyComponent] = "app"
	}
	if s, ok := fields[keyStatus].(string); ok {
		fields[keyStatus] = strings.ToLower(s)
	}
	h.addMeta(ctx, fields)

	keys := h.sortKeys(fields)
	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = encodeJSON(keys, fields); err != nil {
			return err
		}
	} else {
		line = encodeKV(keys, fields)
	}
	h.sink.Write(append(line, '\n'))
	return nil
}

func (h *handler) addMeta(ctx context.Context, fields map[string]any) {
	m := MetaFrom(ctx)
	setDefault := func(k string, v any, zero bool) {
		if _, ok := fields[k]; !ok && !zero {
			fields[k] = v
		}
	}
	if rid := m.RID(); rid != "" {
		setDefault(keyRID, rid, false)
		if h.format == formatJSON {
			setDefault(keyRIDFull, m.FullRID(), false)
		}
	}
	setDefault("update_id", m.UpdateID, m.UpdateID == 0)
	setDefault("user_id", m.UserID, m.UserID == 0)
	setDefault("chat_id", m.ChatID, m.ChatID == 0)
	setDefault("handler", m.Handler, m.Handler == "")
}

func (h *handler) sortKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := h.rank[keys[i]]
		rj, jok := h.rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

// put flattens a into fields. Durations become integer milliseconds under a
// key ending in _ms; empty strings and nil values are dropped.
func put(fields map[string]any, group string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(group, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			put(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}

	var out any
	switch v.Kind() {
	case slog.KindString:
		out = strings.TrimSpace(v.String())
	case slog.KindInt64:
		out = v.Int64()
	case slog.KindUint64:
		out = v.Uint64()
	case slog.KindFloat64:
		out = v.Float64()
	case slog.KindBool:
		out = v.Bool()
	case slog.KindDuration:
		key, out = msKey(key), v.Duration().Round(time.Millisecond).Milliseconds()
	case slog.KindTime:
		out = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case time.Duration:
			key, out = msKey(key), x.Round(time.Millisecond).Milliseconds()
		case error:
			out = x.Error()
		case fmt.Stringer:
			out = x.String()
		default:
			out = fmt.Sprint(x)
		}
	}
	if s, ok := out.(string); out == nil || (ok && s == "") {
		return
	}
	fields[key] = out
}

func msKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	}
	return "ERROR"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func encodeJSON(keys []string, fields map[string]any) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range keys {
		val, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func encodeKV(keys []string, fields map[string]any) []byte {
	var buf []byte
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(fields[k])
		if strings.ContainsAny(s, " =\"\t\n") || s == "" {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}
