package backend

import "strings"

// TrimBaseURL removes surrounding whitespace and every trailing slash.
func TrimBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// ResolveURL turns a path returned by the backend into an absolute reference
// under base. Already absolute references are returned unchanged.
func ResolveURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return TrimBaseURL(base) + "/" + strings.TrimLeft(path, "/")
}
