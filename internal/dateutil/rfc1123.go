// Package dateutil formats time.Time values the way the response pipeline
// needs them on the wire: RFC 1123, always in GMT, with no timezone
// abbreviation ambiguity. Nothing beyond that single layout is in scope.
package dateutil

import "time"

// rfc1123 mirrors net/http's wire date layout without importing net/http,
// since the pipeline in this core is deliberately not built on it.
const rfc1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatRFC1123 renders t in UTC using the fixed "Wdy, DD Mon YYYY
// HH:MM:SS GMT" layout the response Date header requires.
func FormatRFC1123(t time.Time) string {
	return t.UTC().Format(rfc1123)
}
