// Package dep implements Cpn (category/package), Cpv (category/package
// version), and Dep (a full dependency atom: operator, slot, USE-deps,
// blocker, repo-id) parsing, string rendering, and intersection.
package dep

import (
	"fmt"
	"regexp"
	"strings"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/version"
)

var (
	categoryRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_.-]*$`)
	packageRe  = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_-]*$`)
)

// Cpn is a category/package pair.
type Cpn struct {
	Category string
	Package  string
}

// looksLikeVersionSuffix reports whether s ends in a "-<version>" tail,
// per the PMS disambiguation rule that a bare package name must not
// itself parse as "<name>-<version>".
func looksLikeVersionSuffix(s string) bool {
	idx := strings.LastIndexByte(s, '-')
	if idx < 0 {
		return false
	}
	_, err := version.Parse(s[idx+1:])
	return err == nil
}

// ParseCpn parses a "category/package" string.
func ParseCpn(s string) (Cpn, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Cpn{}, &ebuildkit.InvalidDepError{Value: s, Msg: "missing category/package separator"}
	}
	cat, pkg := parts[0], parts[1]
	if !categoryRe.MatchString(cat) {
		return Cpn{}, &ebuildkit.InvalidDepError{Value: s, Msg: "invalid category"}
	}
	if !packageRe.MatchString(pkg) {
		return Cpn{}, &ebuildkit.InvalidDepError{Value: s, Msg: "invalid package name"}
	}
	if looksLikeVersionSuffix(pkg) {
		return Cpn{}, &ebuildkit.InvalidDepError{Value: s, Msg: "package name parses as name-version"}
	}
	return Cpn{Category: cat, Package: pkg}, nil
}

// String renders the Cpn as "category/package".
func (c Cpn) String() string { return c.Category + "/" + c.Package }

// Equal reports field-wise equality.
func (c Cpn) Equal(o Cpn) bool { return c.Category == o.Category && c.Package == o.Package }

// Less orders Cpns by category then package, both ascending.
func (c Cpn) Less(o Cpn) bool {
	if c.Category != o.Category {
		return c.Category < o.Category
	}
	return c.Package < o.Package
}

// Cpv is a Cpn paired with a concrete, operator-free version.
type Cpv struct {
	Cpn
	Version *version.Version
}

// ParseCpv parses "category/package-version".
func ParseCpv(s string) (Cpv, error) {
	idx := lastVersionBoundary(s)
	if idx < 0 {
		return Cpv{}, &ebuildkit.InvalidDepError{Value: s, Msg: "missing version"}
	}
	cpnStr, verStr := s[:idx], s[idx+1:]
	cpn, err := ParseCpn(cpnStr)
	if err != nil {
		return Cpv{}, err
	}
	v, err := version.Parse(verStr)
	if err != nil {
		return Cpv{}, &ebuildkit.InvalidDepError{Value: s, Msg: "invalid version: " + err.Error()}
	}
	return Cpv{Cpn: cpn, Version: v}, nil
}

// lastVersionBoundary finds the "-" that separates package from version
// by scanning from the right and testing each candidate split point,
// since package names may themselves contain hyphens.
func lastVersionBoundary(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != '-' {
			continue
		}
		if _, err := version.Parse(s[i+1:]); err == nil {
			// Require it to look like a real version tail, i.e. start
			// with a digit, to avoid false positives on hyphens inside
			// the package name that happen to parse (e.g. all-digit
			// trailing segments are covered by the version grammar
			// itself, which requires starting with a digit).
			if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				return i
			}
		}
	}
	return -1
}

// String renders "category/package-version".
func (c Cpv) String() string { return c.Cpn.String() + "-" + c.Version.String() }

// P returns "package-pv" (no revision).
func (c Cpv) P() string { return c.Package + "-" + c.Version.Base() }

// PF returns "package-pvr" (version with revision if non-zero).
func (c Cpv) PF() string { return c.Package + "-" + c.PVR() }

// PR returns "r<n>" or empty when the revision is absent/zero.
func (c Cpv) PR() string {
	if r, ok := c.Version.Revision(); ok && r != 0 {
		return fmt.Sprintf("r%d", r)
	}
	return ""
}

// PV returns the version's base string (no revision).
func (c Cpv) PV() string { return c.Version.Base() }

// PVR returns base[-r<n>] with the revision suffix only when non-absent
// and non-zero in display, mirroring ebuild $PVR semantics.
func (c Cpv) PVR() string {
	if pr := c.PR(); pr != "" {
		return c.Version.Base() + "-" + pr
	}
	return c.Version.Base()
}

// Equal reports whether two Cpvs denote the same package and version.
func (c Cpv) Equal(o Cpv) bool {
	return c.Cpn.Equal(o.Cpn) && c.Version.Compare(o.Version) == 0
}

// Less orders Cpvs by Cpn, then by version ascending.
func (c Cpv) Less(o Cpv) bool {
	if !c.Cpn.Equal(o.Cpn) {
		return c.Cpn.Less(o.Cpn)
	}
	return c.Version.Less(o.Version)
}
