// Package repo implements the Repository contract: fake (in-memory),
// ebuild (filesystem-backed), and configured (profile-resolved)
// variants, plus restriction-filtered and parallel iteration.
//
// Grounded on deps.dev/util/resolve/resolve.go and graph.go (an
// in-memory package/version graph with ordered iteration) for the fake
// variant's shape, and on resolve/pypi/internal/pypi.go's
// directory-scan-then-cache pattern for the ebuild variant.
package repo

import (
	"sort"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/depset"
	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/restrict"
	"ebuildkit.dev/ebuildkit/version"
)

// Format identifies which concrete Repository implementation a repo
// is, mirroring the `format` field of spec.md's repos.conf schema.
type Format int

const (
	FormatFake Format = iota
	FormatEbuild
	FormatConfigured
)

func (f Format) String() string {
	switch f {
	case FormatFake:
		return "fake"
	case FormatEbuild:
		return "ebuild"
	case FormatConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

// IuseFlag is one IUSE token: a flag name plus its profile default.
type IuseFlag struct {
	Flag    string
	Default dep.UseDefault
}

// Metadata holds the values read back from a sourced ebuild (or its
// md5-cache record), as enumerated in spec.md §4.7's mandatory/optional
// key list. DepSet fields are nil when the corresponding key was
// absent and optional for the package's EAPI.
type Metadata struct {
	Eapi            *eapi.EAPI
	Description     string
	Homepage        string
	Slot            dep.Slot
	License         []string
	Keywords        []string
	Iuse            []IuseFlag
	Depend          *depset.DepSet
	Rdepend         *depset.DepSet
	Bdepend         *depset.DepSet
	Idepend         *depset.DepSet
	Pdepend         *depset.DepSet
	Properties      []string
	Restrict        []string
	RequiredUse     *depset.DepSet
	SrcUri          *depset.DepSet
	Inherit         []string // direct INHERIT
	Inherited       []EclassRef
	LongDescription string
	Maintainers     []Maintainer
}

// Maintainer is one metadata.xml <maintainer> entry (GLEP 68).
type Maintainer struct {
	Email       string
	Name        string
	Description string
}

// EclassRef names one inherited eclass and the checksum its content
// had when the metadata was cached, used for cache-staleness checks
// and for the _eclasses_/INHERITED incremental-key left-extension rule
// in the metadata package.
type EclassRef struct {
	Name     string
	Checksum string
}

// Package is one Cpv as it exists within a specific repo, with its
// metadata populated on demand by the repo variant that produced it.
type Package struct {
	Cpv  dep.Cpv
	Repo Repository
	Meta *Metadata
}

// Repository is the contract shared by the fake, ebuild, and
// configured variants. Iteration order is unspecified across variants
// but stable within one variant and one call; IterRestrict must yield
// the same multiset Iter().filter(r.Matches) would (property 6 of
// spec.md §8).
type Repository interface {
	Id() string
	Priority() int
	Path() string
	Format() Format
	Categories() []string
	Packages(cat string) []string
	Versions(cat, pkg string) []*version.Version
	Len() int
	IsEmpty() bool
	Iter() []*Package
	IterCpv() []dep.Cpv
	IterRestrict(r *restrict.Restriction) []*Package
	Contains(x any) bool
}

// Less orders two repos by priority descending, then id ascending, per
// spec.md §3's Repository ordering rule.
func Less(a, b Repository) bool {
	if a.Priority() != b.Priority() {
		return a.Priority() > b.Priority()
	}
	return a.Id() < b.Id()
}

// SortRepos sorts repos in place per Less.
func SortRepos(repos []Repository) {
	sort.Slice(repos, func(i, j int) bool { return Less(repos[i], repos[j]) })
}

// MatchesPackage evaluates a restriction tree against a Package. It
// mirrors restrict.Restriction.MatchesDep's combinator logic but adds
// the KindEbuild leaf dispatch, which needs the Metadata type defined
// in this package and so cannot live in package restrict without an
// import cycle. KindDep leaves are matched against a synthetic Dep
// built from the package's Cpv and (if loaded) Slot.
func MatchesPackage(r *restrict.Restriction, pkg *Package) bool {
	if r == nil {
		return true
	}
	switch r.Kind {
	case restrict.KindTrue:
		return true
	case restrict.KindFalse:
		return false
	case restrict.KindNot:
		return !MatchesPackage(r.Children[0], pkg)
	case restrict.KindAnd:
		for _, c := range r.Children {
			if !MatchesPackage(c, pkg) {
				return false
			}
		}
		return true
	case restrict.KindOr:
		for _, c := range r.Children {
			if MatchesPackage(c, pkg) {
				return true
			}
		}
		return false
	case restrict.KindXor:
		count := 0
		for _, c := range r.Children {
			if MatchesPackage(c, pkg) {
				count++
			}
		}
		return count%2 == 1
	case restrict.KindDep:
		return r.Dep.Matches(syntheticDep(pkg))
	case restrict.KindEbuild:
		return matchesEbuildRestrict(r.Ebuild, pkg.Meta)
	default:
		return false
	}
}

// syntheticDep builds a *dep.Dep carrying only the fields a Package can
// answer for without a full atom string: category, package, version,
// and (once metadata is loaded) slot. Operator is always OpNone since
// a package is a concrete Cpv, not a ranged atom.
func syntheticDep(pkg *Package) *dep.Dep {
	d := &dep.Dep{Cpn: pkg.Cpv.Cpn, Version: pkg.Cpv.Version}
	if pkg.Meta != nil {
		slot := pkg.Meta.Slot
		d.Slot = &slot
	}
	return d
}

func matchesEbuildRestrict(r *restrict.EbuildRestrict, m *Metadata) bool {
	if r == nil {
		return true
	}
	if m == nil {
		return false
	}
	if r.Description != nil && !r.Description.Matches(m.Description) {
		return false
	}
	if r.LongDescription != nil && !r.LongDescription.Matches(m.LongDescription) {
		return false
	}
	if r.Homepage != nil && !r.Homepage.Matches(m.Homepage) {
		return false
	}
	if r.Slot != nil && !r.Slot.Matches(m.Slot.Slot) {
		return false
	}
	if r.Subslot != nil && !r.Subslot.Matches(m.Slot.Subslot) {
		return false
	}
	if r.Depend != nil && !r.Depend.Matches(m.Depend) {
		return false
	}
	if r.Rdepend != nil && !r.Rdepend.Matches(m.Rdepend) {
		return false
	}
	if r.Bdepend != nil && !r.Bdepend.Matches(m.Bdepend) {
		return false
	}
	if r.Idepend != nil && !r.Idepend.Matches(m.Idepend) {
		return false
	}
	if r.Pdepend != nil && !r.Pdepend.Matches(m.Pdepend) {
		return false
	}
	if r.Iuse != nil {
		flags := make([]string, len(m.Iuse))
		for i, f := range m.Iuse {
			flags[i] = f.Flag
		}
		if !r.Iuse.Matches(flags) {
			return false
		}
	}
	if r.Keywords != nil && !r.Keywords.Matches(m.Keywords) {
		return false
	}
	if r.Inherit != nil && !r.Inherit.Matches(m.Inherit) {
		return false
	}
	if r.Maintainers != nil {
		emails := make([]string, len(m.Maintainers))
		for i, mt := range m.Maintainers {
			emails[i] = mt.Email
		}
		if !r.Maintainers.Matches(emails) {
			return false
		}
	}
	return true
}
