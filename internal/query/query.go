// Package query decodes the page query string that selects which series to chart.
package query

import "strings"

// Parse decodes a raw query such as "?test=foo%20bar&env=prod" into a flat map.
// A leading "?" is optional, each segment is split on its first "=", and both sides
// are percent-decoded. "+" is kept literally. Later duplicates win.
func Parse(raw string) map[string]string {
	raw = strings.TrimPrefix(raw, "?")
	values := make(map[string]string)
	if raw == "" {
		return values
	}

	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		values[unescape(key)] = unescape(value)
	}
	return values
}

// Get returns the value for key, or "" when it is absent.
func Get(values map[string]string, key string) string {
	return values[key]
}

// unescape decodes each valid %XX escape and leaves malformed ones as they are.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
