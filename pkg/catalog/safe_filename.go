package catalog

import "strings"

// safeName keeps letters, digits and dots, coalesces every other run of
// characters into a single underscore, and trims leading and trailing
// separators. The result is stable under repeated application.
func safeName(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			out = append(out, byte(r))
		default:
			if len(out) > 0 && out[len(out)-1] != '_' {
				out = append(out, '_')
			}
		}
	}
	return strings.Trim(string(out), "._")
}

// SafeFilename derives the download filename clients see for an entry:
// the unique id in hex plus sanitized name and version.
func SafeFilename(e *Entry) string {
	return e.UniqueID.Hex() + "-" + safeName(e.Name) + "-" + safeName(e.Version)
}
