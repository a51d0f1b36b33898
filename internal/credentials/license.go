package credentials

import (
	"crypto/subtle"
	"strings"
)

// License statuses.
const (
	LicenseEmpty   = "empty"
	LicenseValid   = "valid"
	LicenseInvalid = "invalid"
)

// LicenseResult is the /validate-license payload.
type LicenseResult struct {
	Valid  bool   `json:"valid"`
	Status string `json:"status"`
}

// Licenses is a static allow-set of license keys.
type Licenses struct {
	keys [][]byte
}

// NewLicenses builds the allow-set, ignoring blank entries.
func NewLicenses(keys []string) *Licenses {
	l := &Licenses{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			l.keys = append(l.keys, []byte(k))
		}
	}
	return l
}

// Check compares key against every entry in constant time.
func (l *Licenses) Check(key string) LicenseResult {
	key = strings.TrimSpace(key)
	if key == "" {
		return LicenseResult{Status: LicenseEmpty}
	}
	candidate := []byte(key)
	match := 0
	for _, k := range l.keys {
		match |= subtle.ConstantTimeCompare(candidate, k)
	}
	if match == 1 {
		return LicenseResult{Valid: true, Status: LicenseValid}
	}
	return LicenseResult{Status: LicenseInvalid}
}
