package dep

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/version"
)

func mustEapi(t *testing.T, id string) *eapi.EAPI {
	t.Helper()
	e, err := eapi.Get(id)
	if err != nil {
		t.Fatalf("eapi.Get(%q): %v", id, err)
	}
	return e
}

func TestParseCpn(t *testing.T) {
	c, err := ParseCpn("app-editors/vim")
	if err != nil {
		t.Fatal(err)
	}
	if c.Category != "app-editors" || c.Package != "vim" {
		t.Errorf("got %+v", c)
	}
	if c.String() != "app-editors/vim" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestParseCpnRejectsVersionLikePackage(t *testing.T) {
	if _, err := ParseCpn("cat/pkg-1.2"); err == nil {
		t.Errorf("expected error for package name parsing as name-version")
	}
}

func TestParseCpv(t *testing.T) {
	c, err := ParseCpv("app-editors/vim-8.2")
	if err != nil {
		t.Fatal(err)
	}
	if c.String() != "app-editors/vim-8.2" {
		t.Errorf("String() = %q", c.String())
	}
	if c.P() != "vim-8.2" {
		t.Errorf("P() = %q", c.P())
	}
}

// E2. Dep parsing under EAPI 0 and EAPI 8 / EAPI 1.
func TestSlotDepsGatedByEapi(t *testing.T) {
	e0 := mustEapi(t, "0")
	if _, err := Parse("cat/pkg:0", e0); err == nil {
		t.Errorf("expected EAPI 0 to reject slot deps")
	}

	e1 := mustEapi(t, "1")
	d, err := Parse("cat/pkg:0", e1)
	if err != nil {
		t.Fatalf("Parse under EAPI 1: %v", err)
	}
	if d.Cpn.String() != "cat/pkg" {
		t.Errorf("Cpn = %q", d.Cpn.String())
	}
	if d.Slot == nil || d.Slot.Slot != "0" {
		t.Errorf("Slot = %+v", d.Slot)
	}
}

func TestUseDepDefaultsGatedByEapi(t *testing.T) {
	e3 := mustEapi(t, "3")
	if _, err := Parse("cat/pkg[use(+)]", e3); err == nil {
		t.Errorf("expected EAPI 3 to reject use-dep defaults")
	}

	e4 := mustEapi(t, "4")
	d, err := Parse("cat/pkg[use(+)]", e4)
	if err != nil {
		t.Fatalf("Parse under EAPI 4: %v", err)
	}
	if len(d.UseDeps) != 1 || d.UseDeps[0].Flag != "use" || d.UseDeps[0].Default != DefaultEnabled {
		t.Errorf("UseDeps = %+v", d.UseDeps)
	}
}

func TestStarOperatorIntersects(t *testing.T) {
	e8 := mustEapi(t, "8")
	d, err := Parse("=cat/pkg-1.2*", e8)
	if err != nil {
		t.Fatal(err)
	}
	in, err := Parse("=cat/pkg-1.2.99", e8)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Parse("=cat/pkg-1.3", e8)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Intersects(in) {
		t.Errorf("=cat/pkg-1.2* should intersect cat/pkg-1.2.99")
	}
	if d.Intersects(out) {
		t.Errorf("=cat/pkg-1.2* should not intersect cat/pkg-1.3")
	}
}

func TestRepoIdGating(t *testing.T) {
	e8 := mustEapi(t, "8")
	if _, err := Parse("cat/pkg::gentoo", e8); err == nil {
		t.Errorf("expected EAPI 8 (no RepoIds feature) to reject ::repo")
	}

	pc := mustEapi(t, "pkgcraft")
	d, err := Parse("cat/pkg::gentoo", pc)
	if err != nil {
		t.Fatalf("Parse under pkgcraft EAPI: %v", err)
	}
	if d.Repo != "gentoo" {
		t.Errorf("Repo = %q", d.Repo)
	}
}

func TestBlockers(t *testing.T) {
	e1 := mustEapi(t, "1")
	d, err := Parse("!cat/pkg", e1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Blocker != WeakBlocker {
		t.Errorf("Blocker = %v, want weak", d.Blocker)
	}
	d2, err := Parse("!!=cat/pkg-1.0", e1)
	if err != nil {
		t.Fatal(err)
	}
	if d2.Blocker != StrongBlocker {
		t.Errorf("Blocker = %v, want strong", d2.Blocker)
	}
}

// Structural comparison of a fully-populated Dep, in the teacher's
// resolve/*_test.go style of cmp.Diff against a literal expected value
// rather than field-by-field assertions.
func TestParseFullAtomStructurally(t *testing.T) {
	e8 := mustEapi(t, "8")
	d, err := Parse(">=cat/pkg-1.2:0=[foo,-bar]", e8)
	if err != nil {
		t.Fatal(err)
	}

	wantVersion, err := version.Parse("1.2")
	if err != nil {
		t.Fatal(err)
	}
	want := &Dep{
		Cpn:      Cpn{Category: "cat", Package: "pkg"},
		Version:  wantVersion,
		Operator: version.OpGE,
		Slot:     &Slot{Slot: "0", Op: SlotOpEqual},
		UseDeps: []UseDep{
			{Flag: "foo", Kind: UseEnabled},
			{Flag: "bar", Kind: UseDisabled},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("Parse(...) mismatch (-want +got):\n%s", diff)
	}
}

func TestOperatorRequiresVersion(t *testing.T) {
	e8 := mustEapi(t, "8")
	if _, err := Parse(">=cat/pkg", e8); err == nil {
		t.Errorf("expected error: operator without version")
	}
}

func TestRoundTripString(t *testing.T) {
	e8 := mustEapi(t, "8")
	cases := []string{
		"cat/pkg", ">=cat/pkg-1.2", "=cat/pkg-1.2*", "~cat/pkg-1.2",
		"cat/pkg:0/1=", "cat/pkg[foo,-bar,baz(+)=]",
	}
	for _, s := range cases {
		d, err := Parse(s, e8)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := d.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestIntersectsDifferentCpn(t *testing.T) {
	e8 := mustEapi(t, "8")
	a, err := Parse("=cat/pkg-1.0", e8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("=cat/other-1.0", e8)
	if err != nil {
		t.Fatal(err)
	}
	if a.Intersects(b) {
		t.Errorf("deps with different Cpns should never intersect")
	}
}

func TestSlotIntersection(t *testing.T) {
	e8 := mustEapi(t, "8")
	a, _ := Parse("cat/pkg:0", e8)
	b, _ := Parse("cat/pkg:1", e8)
	if a.Intersects(b) {
		t.Errorf("different concrete slots should not intersect")
	}
	c, _ := Parse("cat/pkg", e8)
	if !a.Intersects(c) {
		t.Errorf("a slot-free dep should intersect any slot")
	}
}
