package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

var userSegment = regexp.MustCompile(`(?i)^(C:\\Users\\[^\\]+|/home/[^/]+|/Users/[^/]+)`)

// SanitizePath rewrites an absolute path relative to projectRoot when it
// falls under it (returning "<project>/REL"), otherwise redacts the OS
// user-home segment ("C:\Users\X", "/home/X", "/Users/X") to "[USER]"
// and leaves the remainder untouched.
func SanitizePath(abs, projectRoot string) string {
	if projectRoot != "" {
		if rel, err := filepath.Rel(projectRoot, abs); err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel) {
			return "<project>/" + filepath.ToSlash(rel)
		}
	}
	if loc := userSegment.FindStringIndex(abs); loc != nil {
		return "[USER]" + abs[loc[1]:]
	}
	return abs
}
