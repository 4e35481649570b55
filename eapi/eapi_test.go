package eapi

import "testing"

func TestGetKnownAndUnknown(t *testing.T) {
	e, err := Get("8")
	if err != nil {
		t.Fatalf("Get(8): %v", err)
	}
	if e.Id() != "8" {
		t.Errorf("Id() = %q, want 8", e.Id())
	}

	if _, err := Get("99"); err == nil {
		t.Errorf("Get(99) succeeded, want unknown error")
	}
	if _, err := Get("bad eapi"); err == nil {
		t.Errorf("Get(%q) succeeded, want invalid-id error", "bad eapi")
	}
}

func TestFeatureInheritance(t *testing.T) {
	e0 := MustGet("0")
	e8 := MustGet("8")
	if e0.Has(RequiredUse) {
		t.Errorf("EAPI 0 should not have RequiredUse")
	}
	if !e8.Has(RequiredUse) {
		t.Errorf("EAPI 8 should inherit RequiredUse from EAPI 4")
	}
	if !e8.Has(SlotDeps) {
		t.Errorf("EAPI 8 should inherit SlotDeps from EAPI 1")
	}
}

func TestDepKeysAccumulate(t *testing.T) {
	e0 := MustGet("0")
	e8 := MustGet("8")
	has := func(keys []string, k string) bool {
		for _, x := range keys {
			if x == k {
				return true
			}
		}
		return false
	}
	if has(e0.DepKeys(), "BDEPEND") {
		t.Errorf("EAPI 0 should not have BDEPEND")
	}
	if !has(e8.DepKeys(), "BDEPEND") {
		t.Errorf("EAPI 8 should have BDEPEND")
	}
	if !has(e8.DepKeys(), "DEPEND") {
		t.Errorf("EAPI 8 should still have DEPEND")
	}
}

func TestLessEqualMonotonic(t *testing.T) {
	e0, e4, e8 := MustGet("0"), MustGet("4"), MustGet("8")
	if !LessEqual(e0, e4) || !LessEqual(e4, e8) {
		t.Errorf("LessEqual should hold across the registration chain")
	}
	if LessEqual(e8, e0) {
		t.Errorf("LessEqual(8, 0) should be false")
	}
}

func TestRange(t *testing.T) {
	rs, err := Range("4..6")
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(rs))
	for i, e := range rs {
		ids[i] = e.Id()
	}
	want := []string{"4", "5"}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("Range(4..6) = %v, want %v", ids, want)
	}

	rs, err = Range("4..=6")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 3 {
		t.Errorf("Range(4..=6) has %d entries, want 3", len(rs))
	}

	rs, err = Range("7..")
	if err != nil {
		t.Fatal(err)
	}
	if rs[0].Id() != "7" {
		t.Errorf("Range(7..) should start at 7, got %s", rs[0].Id())
	}
}

func TestArchivesRegex(t *testing.T) {
	e := MustGet("8")
	re := e.ArchivesRegex()
	for _, name := range []string{"foo-1.0.tar.gz", "bar.zip", "baz.tar.bz2"} {
		if !re.MatchString(name) {
			t.Errorf("ArchivesRegex should match %q", name)
		}
	}
	if re.MatchString("plainfile.txt") {
		t.Errorf("ArchivesRegex should not match plainfile.txt")
	}
}

func TestValidId(t *testing.T) {
	if !ValidId("8") || !ValidId("pkgcraft") {
		t.Errorf("expected valid EAPI identifiers to pass")
	}
	if ValidId("") || ValidId("has space") {
		t.Errorf("expected invalid EAPI identifiers to fail")
	}
}
