// Package restrict implements the restriction algebra: a closed sum-type
// predicate tree combined by boolean And/Or/Xor/Not, with a single
// matches dispatch selected by the static type of the entity being
// tested. Modeled on deps.dev/util/resolve's match.go, which dispatches
// a small closed set of match-expression kinds against a VersionKey
// rather than using an open interface per predicate.
package restrict

import (
	"regexp"
	"strings"

	"ebuildkit.dev/ebuildkit/dep"
)

// StrRestrict is a leaf predicate over a single string value.
type StrRestrict struct {
	Equal      *string
	Prefix     *string
	Suffix     *string
	Substr     *string
	Regex      *regexp.Regexp
	LenMin     *int
	LenMax     *int
	IsEmpty    bool
	IsEmptySet bool // distinguishes "field unset" from a real IsEmpty check
}

// Matches reports whether s satisfies every populated field of r.
func (r *StrRestrict) Matches(s string) bool {
	if r == nil {
		return true
	}
	if r.Equal != nil && s != *r.Equal {
		return false
	}
	if r.Prefix != nil && !strings.HasPrefix(s, *r.Prefix) {
		return false
	}
	if r.Suffix != nil && !strings.HasSuffix(s, *r.Suffix) {
		return false
	}
	if r.Substr != nil && !strings.Contains(s, *r.Substr) {
		return false
	}
	if r.Regex != nil && !r.Regex.MatchString(s) {
		return false
	}
	if r.LenMin != nil && len(s) < *r.LenMin {
		return false
	}
	if r.LenMax != nil && len(s) > *r.LenMax {
		return false
	}
	if r.IsEmptySet && (s == "") != r.IsEmpty {
		return false
	}
	return true
}

// StrEqual builds a StrRestrict matching exactly s.
func StrEqual(s string) *StrRestrict { return &StrRestrict{Equal: &s} }

// StrPrefix builds a StrRestrict matching strings with prefix s.
func StrPrefix(s string) *StrRestrict { return &StrRestrict{Prefix: &s} }

// StrSuffix builds a StrRestrict matching strings with suffix s.
func StrSuffix(s string) *StrRestrict { return &StrRestrict{Suffix: &s} }

// StrRegex builds a StrRestrict matching re.
func StrRegex(re *regexp.Regexp) *StrRestrict { return &StrRestrict{Regex: re} }

// SetRestrict is a leaf predicate over an ordered collection of strings
// (e.g. USE flags, KEYWORDS).
type SetRestrict struct {
	Contains *string
	Disjoint []string
	Subset   []string
	Superset []string
	Equal    []string
	Count    *int
	Any      *StrRestrict
	All      *StrRestrict
}

// Matches reports whether set satisfies every populated field of r.
func (r *SetRestrict) Matches(set []string) bool {
	if r == nil {
		return true
	}
	index := make(map[string]bool, len(set))
	for _, s := range set {
		index[s] = true
	}
	if r.Contains != nil && !index[*r.Contains] {
		return false
	}
	if r.Disjoint != nil {
		for _, s := range r.Disjoint {
			if index[s] {
				return false
			}
		}
	}
	if r.Subset != nil {
		allowed := make(map[string]bool, len(r.Subset))
		for _, s := range r.Subset {
			allowed[s] = true
		}
		for _, s := range set {
			if !allowed[s] {
				return false
			}
		}
	}
	if r.Superset != nil {
		for _, s := range r.Superset {
			if !index[s] {
				return false
			}
		}
	}
	if r.Equal != nil {
		if len(r.Equal) != len(set) {
			return false
		}
		for _, s := range r.Equal {
			if !index[s] {
				return false
			}
		}
	}
	if r.Count != nil && len(set) != *r.Count {
		return false
	}
	if r.Any != nil {
		found := false
		for _, s := range set {
			if r.Any.Matches(s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.All != nil {
		for _, s := range set {
			if !r.All.Matches(s) {
				return false
			}
		}
	}
	return true
}

// DepRestrict is a leaf predicate over a single parsed dependency atom.
type DepRestrict struct {
	Category *StrRestrict
	Package  *StrRestrict
	Version  *StrRestrict // matched against the version's base string
	Slot     *StrRestrict // nil predicate means "don't care"; WantSlot controls presence check
	WantSlot OptionPresence
	Subslot  *StrRestrict
	Repo     *StrRestrict
	WantRepo OptionPresence
	UseDeps  *SetRestrict
}

// OptionPresence governs how an Option<StrRestrict>-shaped field (Slot,
// Repo) is matched: whether absence is required, required-present, or
// not constrained at all.
type OptionPresence int

const (
	PresenceIgnore OptionPresence = iota
	PresenceAbsent
	PresencePresent
)

// Matches reports whether d satisfies r.
func (r *DepRestrict) Matches(d *dep.Dep) bool {
	if r == nil {
		return true
	}
	if r.Category != nil && !r.Category.Matches(d.Category) {
		return false
	}
	if r.Package != nil && !r.Package.Matches(d.Package) {
		return false
	}
	if r.Version != nil {
		if d.Version == nil || !r.Version.Matches(d.Version.Base()) {
			return false
		}
	}
	switch r.WantSlot {
	case PresenceAbsent:
		if d.Slot != nil {
			return false
		}
	case PresencePresent:
		if d.Slot == nil {
			return false
		}
	}
	if r.Slot != nil {
		if d.Slot == nil || !r.Slot.Matches(d.Slot.Slot) {
			return false
		}
	}
	if r.Subslot != nil {
		if d.Slot == nil || !r.Subslot.Matches(d.Slot.Subslot) {
			return false
		}
	}
	switch r.WantRepo {
	case PresenceAbsent:
		if d.Repo != "" {
			return false
		}
	case PresencePresent:
		if d.Repo == "" {
			return false
		}
	}
	if r.Repo != nil && !r.Repo.Matches(d.Repo) {
		return false
	}
	if r.UseDeps != nil {
		flags := make([]string, len(d.UseDeps))
		for i, u := range d.UseDeps {
			flags[i] = u.Flag
		}
		if !r.UseDeps.Matches(flags) {
			return false
		}
	}
	return true
}
