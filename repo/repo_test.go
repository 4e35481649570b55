package repo

import (
	"testing"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/restrict"
)

func mustFake(t *testing.T, id string, priority int, cpvs []string) *Fake {
	t.Helper()
	f, err := NewFake(id, priority, cpvs)
	if err != nil {
		t.Fatalf("NewFake: %v", err)
	}
	return f
}

// E5. Repo filtered iteration.
func TestFakeIterRestrictFiltersByPackage(t *testing.T) {
	f := mustFake(t, "test", 0, []string{"cat/pkg-1", "cat/pkg-2", "cat/other-1"})
	r := restrict.DepLeaf(&restrict.DepRestrict{Package: restrict.StrEqual("pkg")})
	got := f.IterRestrict(r)
	if len(got) != 2 {
		t.Fatalf("got %d packages, want 2", len(got))
	}
	if got[0].Cpv.String() != "cat/pkg-1" || got[1].Cpv.String() != "cat/pkg-2" {
		t.Errorf("got %v, %v", got[0].Cpv, got[1].Cpv)
	}
}

// Property 6: repo.iter().filter(r.matches) == repo.iter_restrict(r) as
// multisets.
func TestIterRestrictEquivalentToFilteredIter(t *testing.T) {
	f := mustFake(t, "test", 0, []string{"cat/pkg-1", "cat/pkg-2", "cat/other-1", "cat/other-2"})
	r := restrict.DepLeaf(&restrict.DepRestrict{Category: restrict.StrEqual("cat"), Package: restrict.StrEqual("other")})

	filtered := map[string]int{}
	for _, p := range f.Iter() {
		if MatchesPackage(r, p) {
			filtered[p.Cpv.String()]++
		}
	}
	restricted := map[string]int{}
	for _, p := range f.IterRestrict(r) {
		restricted[p.Cpv.String()]++
	}
	if len(filtered) != len(restricted) {
		t.Fatalf("multiset size mismatch: %v vs %v", filtered, restricted)
	}
	for k, v := range filtered {
		if restricted[k] != v {
			t.Errorf("count mismatch for %s: filtered=%d restricted=%d", k, v, restricted[k])
		}
	}
}

func TestFakeContainsVariants(t *testing.T) {
	f := mustFake(t, "test", 0, []string{"cat/pkg-1"})
	cpn, err := dep.ParseCpn("cat/pkg")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Contains(cpn) {
		t.Errorf("expected Contains(Cpn) true")
	}
	absent, err := dep.ParseCpn("cat/other")
	if err != nil {
		t.Fatal(err)
	}
	if f.Contains(absent) {
		t.Errorf("expected Contains(Cpn) false for absent package")
	}
}

func TestRepoOrdering(t *testing.T) {
	a := mustFake(t, "b", 10, nil)
	b := mustFake(t, "a", 10, nil)
	c := mustFake(t, "z", 5, nil)
	repos := []Repository{c, a, b}
	SortRepos(repos)
	if repos[0].Id() != "a" || repos[1].Id() != "b" || repos[2].Id() != "z" {
		t.Errorf("unexpected order: %s, %s, %s", repos[0].Id(), repos[1].Id(), repos[2].Id())
	}
}

func TestFakeVersionsSorted(t *testing.T) {
	f := mustFake(t, "test", 0, []string{"cat/pkg-2", "cat/pkg-1", "cat/pkg-1.5"})
	versions := f.Versions("cat", "pkg")
	if len(versions) != 3 {
		t.Fatalf("got %d versions, want 3", len(versions))
	}
	if versions[0].String() != "1" || versions[1].String() != "1.5" || versions[2].String() != "2" {
		t.Errorf("versions not sorted ascending: %v, %v, %v", versions[0], versions[1], versions[2])
	}
}
