// Package logfields holds the canonical slog attribute keys used across
// linkmark so that log output keeps one schema.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names.
const (
	KeyPath       = "path"
	KeyRoot       = "root"
	KeyCount      = "count"
	KeyFormat     = "format"
	KeyKind       = "kind"
	KeyOp         = "op"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Root(r string) slog.Attr         { return slog.String(KeyRoot, r) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Since is DurationMS measured from start.
func Since(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
