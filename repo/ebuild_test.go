package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/depset"
	"ebuildkit.dev/ebuildkit/eapi"
)

func writeDiskRepo(t *testing.T, cats []string) string {
	t.Helper()
	root := t.TempDir()
	profiles := filepath.Join(root, "profiles")
	if err := os.MkdirAll(profiles, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(profiles, "categories"), []byte(strings.Join(cats, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func writeEbuildFile(t *testing.T, root, cat, pkg, ver string) {
	t.Helper()
	dir := filepath.Join(root, cat, pkg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, pkg+"-"+ver+".ebuild")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestIterOrdersCategoriesAndVersionsByPMS exercises the ordering bug
// fix directly: profiles/categories lists categories out of order, and
// a package has two ebuild files whose filenames sort the opposite way
// from their PMS version order ("pkg-1.10.ebuild" < "pkg-1.9.ebuild"
// lexically, but 1.9 < 1.10 under PMS).
func TestIterOrdersCategoriesAndVersionsByPMS(t *testing.T) {
	root := writeDiskRepo(t, []string{"zzz-cat", "aaa-cat"})
	writeEbuildFile(t, root, "zzz-cat", "pkg", "1.0")
	writeEbuildFile(t, root, "aaa-cat", "pkg", "1.10")
	writeEbuildFile(t, root, "aaa-cat", "pkg", "1.9")

	e, err := NewEbuild("test", 0, root, EbuildOptions{})
	if err != nil {
		t.Fatalf("NewEbuild: %v", err)
	}

	cpvs := e.IterCpv()
	if len(cpvs) != 3 {
		t.Fatalf("expected 3 cpvs, got %d: %+v", len(cpvs), cpvs)
	}
	want := []string{"aaa-cat/pkg-1.9", "aaa-cat/pkg-1.10", "zzz-cat/pkg-1.0"}
	for i, w := range want {
		if got := cpvs[i].String(); got != w {
			t.Errorf("cpvs[%d] = %q, want %q (full order: %v)", i, got, w, stringifyCpvs(cpvs))
		}
	}
}

func stringifyCpvs(cpvs []dep.Cpv) []string {
	out := make([]string, len(cpvs))
	for i, c := range cpvs {
		out[i] = c.String()
	}
	return out
}

// depLoader is a minimal repo.Loader that returns canned Metadata for
// any cpv found in its table, used to exercise ReverseDependencies
// without depending on package metadata (which itself depends on repo,
// so importing it here would cycle).
type depLoader struct {
	byCpv map[string]*Metadata
}

func (l *depLoader) Load(cpv dep.Cpv, _ string, _ *eapi.EAPI) (*Metadata, error) {
	return l.byCpv[cpv.String()], nil
}

func mustDepSet(t *testing.T, e *eapi.EAPI, atoms ...string) *depset.DepSet {
	t.Helper()
	ds, err := depset.Parse(strings.Join(atoms, " "), depset.KindPkgDepSet, e, depset.ParsePkgDep)
	if err != nil {
		t.Fatalf("depset.Parse(%v): %v", atoms, err)
	}
	return ds
}

func TestReverseDependencies(t *testing.T) {
	e8 := eapi.MustGet("8")
	root := writeDiskRepo(t, []string{"cat"})
	writeEbuildFile(t, root, "cat", "a", "1.0")
	writeEbuildFile(t, root, "cat", "b", "1.0")
	writeEbuildFile(t, root, "cat", "c", "1.0")

	loader := &depLoader{byCpv: map[string]*Metadata{
		"cat/a-1.0": {Depend: mustDepSet(t, e8, ">=cat/target-1.0")},
		"cat/b-1.0": {Rdepend: mustDepSet(t, e8, "cat/target")},
		"cat/c-1.0": {Depend: mustDepSet(t, e8, "cat/unrelated")},
	}}

	repoHandle, err := NewEbuild("test", 0, root, EbuildOptions{Loader: loader})
	if err != nil {
		t.Fatalf("NewEbuild: %v", err)
	}

	target := dep.Dep{Cpn: dep.Cpn{Category: "cat", Package: "target"}}
	got := repoHandle.ReverseDependencies(target)
	if len(got) != 2 || got[0].String() != "cat/a-1.0" || got[1].String() != "cat/b-1.0" {
		t.Fatalf("ReverseDependencies = %v, want [cat/a-1.0 cat/b-1.0]", stringifyCpvs(got))
	}

	// A version-constrained query that the ">=cat/target-1.0" atom
	// cannot intersect should exclude cat/a while keeping the
	// unconstrained "cat/target" atom in cat/b.
	oldVersion, err := dep.Parse("<cat/target-1.0", e8)
	if err != nil {
		t.Fatal(err)
	}
	got2 := repoHandle.ReverseDependencies(*oldVersion)
	if len(got2) != 1 || got2[0].String() != "cat/b-1.0" {
		t.Fatalf("ReverseDependencies(<1.0) = %v, want [cat/b-1.0]", stringifyCpvs(got2))
	}

	// Calling twice must return the same (memoized) result.
	got3 := repoHandle.ReverseDependencies(target)
	if len(got3) != len(got) {
		t.Fatalf("second call returned different length: %v vs %v", got3, got)
	}
}
