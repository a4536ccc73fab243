package commands

import "strings"

// NormalizePath canonicalizes a slash-delimited session path: trims
// surrounding slashes and whitespace and collapses empty segments.
func NormalizePath(token string) string {
	token = strings.Trim(strings.TrimSpace(token), "/")
	if token == "" {
		return ""
	}
	var parts []string
	for _, p := range strings.Split(token, "/") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// PathParent returns the parent path, or "" at the root.
func PathParent(path string) string {
	p := NormalizePath(path)
	if p == "" {
		return ""
	}
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// PathLast returns the final segment (the current node), or "" at the root.
func PathLast(path string) string {
	p := NormalizePath(path)
	if p == "" {
		return ""
	}
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
