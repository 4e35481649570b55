package repo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/depset"
	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/restrict"
	"ebuildkit.dev/ebuildkit/version"
)

// Loader sources a package's metadata, either from the md5-cache or by
// invoking the shellapi collaborator to parse the ebuild directly. It
// is implemented by package metadata; defining it here (rather than
// having repo import metadata) keeps the dependency one-directional,
// since metadata needs repo's Package/Metadata types.
type Loader interface {
	Load(cpv dep.Cpv, ebuildPath string, e *eapi.EAPI) (*Metadata, error)
}

// Ebuild is a filesystem-backed repository: a directory tree of
// `<cat>/<pkg>/<pkg>-<ver>.ebuild` files plus a profiles/ directory,
// grounded on resolve/pypi/internal/pypi.go's directory-scan-then-cache
// pattern (scan once at construction, cache the listing, load
// expensive per-entry data lazily).
type Ebuild struct {
	id       string
	priority int
	path     string
	eapi     *eapi.EAPI
	masters  []*Ebuild
	loader   Loader

	cpvs  []dep.Cpv
	byCat map[string][]string
	byPkg map[[2]string][]*version.Version

	revDepsOnce sync.Once
	revDeps     map[dep.Cpn][]revDepEntry
}

// EbuildOptions configures NewEbuild. The Loader is fixed at
// construction; Masters are set afterwards via SetMasters, since
// resolving them requires a Config that doesn't exist yet at scan time.
type EbuildOptions struct {
	Loader Loader
}

// NewEbuild scans path for category/package/version triples. It does
// not read ebuild content; metadata is loaded lazily through Loader.
func NewEbuild(id string, priority int, path string, opts EbuildOptions) (*Ebuild, error) {
	e := &Ebuild{id: id, priority: priority, path: path, loader: opts.Loader}

	repoEapi, err := readRepoEapi(path)
	if err != nil {
		return nil, err
	}
	e.eapi = repoEapi

	cats, err := readLines(filepath.Join(path, "profiles", "categories"))
	if err != nil {
		return nil, &ebuildkit.NotARepoError{Path: path}
	}

	e.byCat = map[string][]string{}
	e.byPkg = map[[2]string][]*version.Version{}

	for _, cat := range cats {
		catDir := filepath.Join(path, cat)
		pkgEntries, err := os.ReadDir(catDir)
		if err != nil {
			continue
		}
		var pkgNames []string
		for _, pe := range pkgEntries {
			if !pe.IsDir() {
				continue
			}
			pkg := pe.Name()
			versions, err := scanPackageDir(filepath.Join(catDir, pkg), pkg)
			if err != nil || len(versions) == 0 {
				continue
			}
			pkgNames = append(pkgNames, pkg)
			key := [2]string{cat, pkg}
			for _, v := range versions {
				e.byPkg[key] = append(e.byPkg[key], v)
				e.cpvs = append(e.cpvs, dep.Cpv{Cpn: dep.Cpn{Category: cat, Package: pkg}, Version: v})
			}
			sort.Slice(e.byPkg[key], func(i, j int) bool { return e.byPkg[key][i].Less(e.byPkg[key][j]) })
		}
		sort.Strings(pkgNames)
		if len(pkgNames) > 0 {
			e.byCat[cat] = pkgNames
		}
	}

	// e.cpvs was appended in raw scan order (profiles/categories file
	// order for categories, os.ReadDir filename order for versions
	// within a package — neither is PMS order; "pkg-1.10.ebuild" sorts
	// before "pkg-1.9.ebuild" by filename despite 1.9 < 1.10). Iter
	// must yield category-ascending, package-ascending, PMS-version-
	// ascending order per spec.md §5, so sort explicitly rather than
	// relying on scan order.
	sort.Slice(e.cpvs, func(i, j int) bool {
		a, b := e.cpvs[i], e.cpvs[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Version.Less(b.Version)
	})

	return e, nil
}

// SetMasters records the finalized masters DAG for this repo (called by
// config.Finalize after topological sort); Masters returns it.
func (e *Ebuild) SetMasters(masters []*Ebuild) { e.masters = masters }

// Masters returns the repos this repo inherits eclasses/profile data
// from, in the order the repo declares them.
func (e *Ebuild) Masters() []*Ebuild { return e.masters }

func readRepoEapi(path string) (*eapi.EAPI, error) {
	lines, err := readLines(filepath.Join(path, "profiles", "eapi"))
	if err != nil || len(lines) == 0 {
		return eapi.MustGet("0"), nil
	}
	return eapi.Get(strings.TrimSpace(lines[0]))
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// scanPackageDir lists "<pkg>-<ver>.ebuild" files in dir and parses
// each one's version suffix.
func scanPackageDir(dir, pkg string) ([]*version.Version, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	prefix := pkg + "-"
	var out []*version.Version
	for _, ent := range entries {
		name := ent.Name()
		if !strings.HasSuffix(name, ".ebuild") || !strings.HasPrefix(name, prefix) {
			continue
		}
		verStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".ebuild")
		v, err := version.Parse(verStr)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Ebuild) Id() string     { return e.id }
func (e *Ebuild) Priority() int  { return e.priority }
func (e *Ebuild) Path() string   { return e.path }
func (e *Ebuild) Format() Format { return FormatEbuild }
func (e *Ebuild) Len() int       { return len(e.cpvs) }
func (e *Ebuild) IsEmpty() bool  { return len(e.cpvs) == 0 }

func (e *Ebuild) Categories() []string {
	out := make([]string, 0, len(e.byCat))
	for cat := range e.byCat {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func (e *Ebuild) Packages(cat string) []string {
	return append([]string(nil), e.byCat[cat]...)
}

func (e *Ebuild) Versions(cat, pkg string) []*version.Version {
	return append([]*version.Version(nil), e.byPkg[[2]string{cat, pkg}]...)
}

func (e *Ebuild) ebuildPath(cpv dep.Cpv) string {
	return filepath.Join(e.path, cpv.Category, cpv.Package, cpv.PF()+".ebuild")
}

func (e *Ebuild) loadOne(cpv dep.Cpv) *Package {
	pkg := &Package{Cpv: cpv, Repo: e}
	if e.loader != nil {
		if meta, err := e.loader.Load(cpv, e.ebuildPath(cpv), e.eapi); err == nil {
			pkg.Meta = meta
		}
	}
	return pkg
}

func (e *Ebuild) IterCpv() []dep.Cpv { return append([]dep.Cpv(nil), e.cpvs...) }

// Iter sequentially loads and yields every package, in the repo's
// scan order (categories, then packages, then versions, each sorted).
func (e *Ebuild) Iter() []*Package {
	out := make([]*Package, len(e.cpvs))
	for i, cpv := range e.cpvs {
		out[i] = e.loadOne(cpv)
	}
	return out
}

// candidateCpvs applies the restriction-tree shortcut from spec.md
// §4.6: a Dep(Category(Equal)) narrows to one category, additionally
// Dep(Package(Equal)) narrows to one category/package, and an
// operator-free or "=" Version narrows to the Cpvs whose version base
// string equals it (DepRestrict.Version matches against Base, so
// revisions and suffix variants of that base stay in). Any other
// shape degrades to a full scan. The shortcut is sound by construction
// since it only ever narrows the candidate set along axes the
// restriction tree explicitly pins to an exact value; it never
// excludes a Cpv the restriction could still match.
func (e *Ebuild) candidateCpvs(r *restrict.Restriction) []dep.Cpv {
	cat, pkg, ver, ok := exactDepFields(r)
	if !ok || cat == "" {
		return e.cpvs
	}
	if pkg == "" {
		var out []dep.Cpv
		for _, cpv := range e.cpvs {
			if cpv.Category == cat {
				out = append(out, cpv)
			}
		}
		return out
	}
	key := [2]string{cat, pkg}
	if ver == nil {
		out := make([]dep.Cpv, len(e.byPkg[key]))
		for i, v := range e.byPkg[key] {
			out[i] = dep.Cpv{Cpn: dep.Cpn{Category: cat, Package: pkg}, Version: v}
		}
		return out
	}
	var out []dep.Cpv
	for _, v := range e.byPkg[key] {
		if v.Base() == ver.Base() {
			out = append(out, dep.Cpv{Cpn: dep.Cpn{Category: cat, Package: pkg}, Version: v})
		}
	}
	return out
}

// exactDepFields walks a restriction tree looking for an outermost,
// unconditional KindDep leaf (or an And of such leaves) pinning
// Category/Package/Version to exact values. ok is false when the tree
// has any shape the shortcut cannot safely narrow on (Or, Xor, Not,
// non-equal string predicates, ranged versions).
func exactDepFields(r *restrict.Restriction) (cat, pkg string, ver *version.Version, ok bool) {
	if r == nil {
		return "", "", nil, false
	}
	switch r.Kind {
	case restrict.KindDep:
		if r.Dep == nil {
			return "", "", nil, false
		}
		if r.Dep.Category != nil && r.Dep.Category.Equal != nil {
			cat = *r.Dep.Category.Equal
		}
		if r.Dep.Package != nil && r.Dep.Package.Equal != nil {
			pkg = *r.Dep.Package.Equal
		}
		if r.Dep.Version != nil && r.Dep.Version.Equal != nil {
			v, err := version.Parse(*r.Dep.Version.Equal)
			if err == nil {
				ver = v
			}
		}
		return cat, pkg, ver, cat != "" || pkg != "" || ver != nil
	case restrict.KindAnd:
		for _, c := range r.Children {
			cc, cp, cv, cok := exactDepFields(c)
			if !cok {
				continue
			}
			if cc != "" {
				cat = cc
			}
			if cp != "" {
				pkg = cp
			}
			if cv != nil {
				ver = cv
			}
		}
		return cat, pkg, ver, cat != "" || pkg != "" || ver != nil
	default:
		return "", "", nil, false
	}
}

// IterRestrict narrows enumeration per candidateCpvs, then applies the
// full restriction to every candidate (the shortcut only reduces the
// set scanned; it never substitutes for evaluating the restriction).
func (e *Ebuild) IterRestrict(r *restrict.Restriction) []*Package {
	var out []*Package
	for _, cpv := range e.candidateCpvs(r) {
		pkg := e.loadOne(cpv)
		if MatchesPackage(r, pkg) {
			out = append(out, pkg)
		}
	}
	return out
}

func (e *Ebuild) Contains(x any) bool {
	switch v := x.(type) {
	case dep.Cpn:
		_, ok := e.byPkg[[2]string{v.Category, v.Package}]
		return ok
	case dep.Cpv:
		for _, vv := range e.byPkg[[2]string{v.Category, v.Package}] {
			if vv.Equal(v.Version) {
				return true
			}
		}
		return false
	case *dep.Dep:
		for _, vv := range e.byPkg[[2]string{v.Category, v.Package}] {
			if v.Version == nil || v.Version.Intersects(vv) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// revDepEntry records one dependency edge: cpv declares dep (one of its
// DEPEND/RDEPEND/BDEPEND/IDEPEND/PDEPEND atoms) against the Cpn this
// entry is indexed under.
type revDepEntry struct {
	cpv dep.Cpv
	dep *dep.Dep
}

// buildRevDeps scans every package's dependency depsets once, flattens
// their PkgDep leaves, and indexes each one by the Cpn it names.
func (e *Ebuild) buildRevDeps() {
	idx := map[dep.Cpn][]revDepEntry{}
	for _, pkg := range e.Iter() {
		if pkg.Meta == nil {
			continue
		}
		for _, ds := range []*depset.DepSet{pkg.Meta.Depend, pkg.Meta.Rdepend, pkg.Meta.Bdepend, pkg.Meta.Idepend, pkg.Meta.Pdepend} {
			if ds == nil {
				continue
			}
			for _, leaf := range ds.Flatten() {
				pd, ok := leaf.(depset.PkgDep)
				if !ok {
					continue
				}
				idx[pd.Dep.Cpn] = append(idx[pd.Dep.Cpn], revDepEntry{cpv: pkg.Cpv, dep: pd.Dep})
			}
		}
	}
	e.revDeps = idx
}

// ReverseDependencies returns the Cpv of every package in the repo
// whose DEPEND/RDEPEND/BDEPEND/IDEPEND/PDEPEND names an atom
// intersecting d, per spec.md §3.1's recovered revdeps feature
// (grounded on repo/ebuild/revdeps.rs's RevDepCache). The index is
// built once per repo generation, on first call, and reused afterward
// — sound because an *Ebuild is otherwise immutable once NewEbuild has
// scanned it.
func (e *Ebuild) ReverseDependencies(d dep.Dep) []dep.Cpv {
	e.revDepsOnce.Do(e.buildRevDeps)

	seen := map[string]bool{}
	var out []dep.Cpv
	for _, entry := range e.revDeps[d.Cpn] {
		if !entry.dep.Intersects(&d) {
			continue
		}
		key := entry.cpv.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entry.cpv)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Version.Less(b.Version)
	})
	return out
}
