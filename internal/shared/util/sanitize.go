package util

import (
	"errors"
	"strings"
)

const maxNameLen = 80

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// SafeName validates a name used as a single directory component. Path
// separators, the characters Windows forbids in file names, control
// characters, a leading dot and a trailing dot or space are rejected.
func SafeName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", errors.New("name is required")
	}
	if len(s) > maxNameLen {
		return "", errors.New("name is too long")
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return "", errors.New("invalid name")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"/\|?*`, r) {
			return "", errors.New("invalid name")
		}
	}
	return s, nil
}
