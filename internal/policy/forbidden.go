package policy

import "strings"

// ForbiddenNames is the set of owner names that must never appear in a
// proxied response. Matching is exact on the trimmed, lowercased value;
// substring matching is deliberately not performed.
type ForbiddenNames struct {
	set map[string]struct{}
}

// NewForbiddenNames builds the set from configured names. Entries are
// trimmed and lowercased; empty entries are ignored.
func NewForbiddenNames(names []string) *ForbiddenNames {
	f := &ForbiddenNames{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			f.set[n] = struct{}{}
		}
	}
	return f
}

// Matches reports whether a string value, normalised the same way as the
// configured names, is forbidden.
func (f *ForbiddenNames) Matches(value string) bool {
	if f == nil || len(f.set) == 0 {
		return false
	}
	_, ok := f.set[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Empty reports whether the policy has no entries.
func (f *ForbiddenNames) Empty() bool {
	return f == nil || len(f.set) == 0
}
