package repo

import (
	"ebuildkit.dev/ebuildkit/dep"
)

// Settings holds the profile-resolved environment a Configured repo
// composes with its underlying Ebuild repo: the user's enabled USE
// flags, masked keywords, and any profile USE-flag overlays.
type Settings struct {
	Use           map[string]bool
	AcceptedKeyword string
	Masked        func(cpv dep.Cpv) bool
}

// Configured wraps an Ebuild repo with Settings: it yields the embedded
// Ebuild's packages unchanged, and USE state resolved against Settings
// rather than raw profile defaults is available through ResolvedUse,
// per spec.md §4.6's "configured" variant. The
// open question of whether this affects iter_restrict semantics for
// Iuse-vs-USE predicates is resolved here: restriction predicates over
// EbuildRestrict.Iuse continue to see the raw IUSE flag list (the set
// of flags the package declares), while the actual enabled/disabled
// state used by metadata consumers downstream (e.g. a future resolver)
// comes from ResolvedUse, a method only Configured exposes. This keeps
// iter_restrict's observable behavior for Iuse predicates identical
// between Ebuild and Configured, avoiding a surprising restriction
// result that depends on which variant produced the Package.
type Configured struct {
	*Ebuild
	settings *Settings
}

// NewConfigured wraps base with settings.
func NewConfigured(base *Ebuild, settings *Settings) *Configured {
	return &Configured{Ebuild: base, settings: settings}
}

func (c *Configured) Format() Format { return FormatConfigured }

// ResolvedUse reports whether flag is enabled for pkg under c's
// Settings, falling back to the package's IUSE default when Settings
// doesn't mention the flag at all.
func (c *Configured) ResolvedUse(pkg *Package, flag string) bool {
	if c.settings != nil && c.settings.Use != nil {
		if v, ok := c.settings.Use[flag]; ok {
			return v
		}
	}
	if pkg.Meta == nil {
		return false
	}
	for _, f := range pkg.Meta.Iuse {
		if f.Flag == flag {
			return f.Default == dep.DefaultEnabled
		}
	}
	return false
}

// Masked reports whether pkg is masked under c's Settings, as decided by
// the caller-supplied Settings.Masked predicate; profile package.mask
// files are not read.
func (c *Configured) Masked(pkg *Package) bool {
	if c.settings == nil || c.settings.Masked == nil {
		return false
	}
	return c.settings.Masked(pkg.Cpv)
}

// Iter, IterRestrict, Contains, Versions are all inherited from the
// embedded *Ebuild unmodified: a Configured repo's membership and
// enumeration are identical to its base repo's, only the resolved-USE
// view available through ResolvedUse differs.
var _ Repository = (*Configured)(nil)
