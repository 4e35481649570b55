package repo

import (
	"sort"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/restrict"
	"ebuildkit.dev/ebuildkit/version"
)

// Fake is a plain in-memory Cpv index, grounded on
// deps.dev/util/resolve/graph.go's in-memory version graph: a flat
// slice of entries plus category/package indexes built once at
// construction, used for tests and lightweight overlay repos.
type Fake struct {
	id       string
	priority int
	pkgs     []*Package

	byCat map[string][]string              // category -> package names, sorted
	byPkg map[[2]string][]*version.Version // (cat,pkg) -> versions, sorted
}

// NewFake builds a Fake repo from a list of Cpv strings
// ("cat/pkg-version"), matching the shape of spec.md's E5 scenario
// fixture construction.
func NewFake(id string, priority int, cpvs []string) (*Fake, error) {
	f := &Fake{id: id, priority: priority}
	for _, s := range cpvs {
		cpv, err := dep.ParseCpv(s)
		if err != nil {
			return nil, err
		}
		f.pkgs = append(f.pkgs, &Package{Cpv: cpv, Repo: f})
	}
	f.reindex()
	return f, nil
}

func (f *Fake) reindex() {
	f.byCat = map[string][]string{}
	f.byPkg = map[[2]string][]*version.Version{}
	seenPkg := map[[2]string]bool{}
	for _, p := range f.pkgs {
		p.Repo = f
		cat, name := p.Cpv.Category, p.Cpv.Package
		key := [2]string{cat, name}
		if !seenPkg[key] {
			seenPkg[key] = true
			f.byCat[cat] = append(f.byCat[cat], name)
		}
		f.byPkg[key] = append(f.byPkg[key], p.Cpv.Version)
	}
	for cat := range f.byCat {
		sort.Strings(f.byCat[cat])
	}
	for key := range f.byPkg {
		vs := f.byPkg[key]
		sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	}
}

func (f *Fake) Id() string       { return f.id }
func (f *Fake) Priority() int    { return f.priority }
func (f *Fake) Path() string     { return "" }
func (f *Fake) Format() Format   { return FormatFake }
func (f *Fake) Len() int         { return len(f.pkgs) }
func (f *Fake) IsEmpty() bool    { return len(f.pkgs) == 0 }

func (f *Fake) Categories() []string {
	out := make([]string, 0, len(f.byCat))
	for cat := range f.byCat {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func (f *Fake) Packages(cat string) []string {
	return append([]string(nil), f.byCat[cat]...)
}

func (f *Fake) Versions(cat, pkg string) []*version.Version {
	return append([]*version.Version(nil), f.byPkg[[2]string{cat, pkg}]...)
}

// Iter enumerates packages in insertion order, stable for a given Fake
// value.
func (f *Fake) Iter() []*Package { return append([]*Package(nil), f.pkgs...) }

func (f *Fake) IterCpv() []dep.Cpv {
	out := make([]dep.Cpv, len(f.pkgs))
	for i, p := range f.pkgs {
		out[i] = p.Cpv
	}
	return out
}

// IterRestrict filters Iter() by r, preserving Iter's order. This is a
// full scan: Fake carries no metadata to justify the ebuild variant's
// category/package restriction-shortcut optimization.
func (f *Fake) IterRestrict(r *restrict.Restriction) []*Package {
	var out []*Package
	for _, p := range f.pkgs {
		if MatchesPackage(r, p) {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports membership for a Cpn, Cpv, or *dep.Dep.
func (f *Fake) Contains(x any) bool {
	switch v := x.(type) {
	case dep.Cpn:
		_, ok := f.byCat[v.Category]
		if !ok {
			return false
		}
		for _, n := range f.byCat[v.Category] {
			if n == v.Package {
				return true
			}
		}
		return false
	case dep.Cpv:
		for _, p := range f.pkgs {
			if p.Cpv.Equal(v) {
				return true
			}
		}
		return false
	case *dep.Dep:
		for _, p := range f.pkgs {
			if v.Cpn.Equal(p.Cpv.Cpn) && (v.Version == nil || v.Version.Intersects(p.Cpv.Version)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
