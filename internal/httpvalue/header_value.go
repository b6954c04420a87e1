package httpvalue

import (
	"fmt"
	"strings"
	"time"

	"github.com/ankit-kulkarni/server_rs/internal/dateutil"
)

// HeaderValue is the polymorphic header value the response holds: a plain
// string, a static string literal, an RFC 1123-formatted time, or a
// weighted-value list. All four render to the single string that goes on
// the wire; the split exists so callers can hand over a time.Time or a
// weighted list without pre-formatting it themselves.
type HeaderValue interface {
	Render() string
}

type stringValue string

func (v stringValue) Render() string { return string(v) }

// StringValue wraps an owned string header value.
func StringValue(s string) HeaderValue { return stringValue(s) }

// StaticValue wraps a string-literal header value. It behaves identically
// to StringValue; the distinction mirrors the source's &'static str vs
// String split, which in Go collapses to the same representation.
func StaticValue(s string) HeaderValue { return stringValue(s) }

type timeValue time.Time

func (v timeValue) Render() string { return dateutil.FormatRFC1123(time.Time(v)) }

// TimeValue wraps a time.Time, rendered as an RFC 1123 date string.
func TimeValue(t time.Time) HeaderValue { return timeValue(t) }

// Weighted is one entry of a weighted-value list, e.g. "gzip;q=0.80" in an
// Accept-Encoding-style header.
type Weighted struct {
	Value  string
	Weight *float64
}

type weightedValue []Weighted

func (v weightedValue) Render() string {
	var b strings.Builder
	for _, w := range v {
		b.WriteString(w.Value)
		if w.Weight != nil {
			fmt.Fprintf(&b, ";q=%.2f", *w.Weight)
		}
	}
	out := b.String()
	if out == "" {
		return out
	}
	// Unconditional trailing-character strip, kept for byte-for-byte
	// output parity; it clips the last value's final character whenever
	// there is no trailing separator to absorb it.
	return out[:len(out)-1]
}

// WeightedListValue wraps a weighted-value list.
func WeightedListValue(values []Weighted) HeaderValue { return weightedValue(values) }
