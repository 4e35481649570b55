package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/eapi"
)

func writeCache(t *testing.T, repoPath, cat, pf, content string) {
	t.Helper()
	dir := filepath.Join(repoPath, "metadata", "md5-cache", cat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, pf), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCacheLoaderLoadsMandatoryAndDepFields(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	writeCache(t, repoPath, "cat", "pkg-1", ""+
		"EAPI=8\n"+
		"DESCRIPTION=a test package\n"+
		"SLOT=0/1\n"+
		"HOMEPAGE=https://example.invalid\n"+
		"KEYWORDS=amd64 ~x86\n"+
		"IUSE=+foo -bar\n"+
		"DEPEND=cat/dep1 cat/dep2\n"+
		"RDEPEND=cat/dep1\n")

	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	l := &CacheLoader{RepoPath: repoPath}
	meta, err := l.Load(cpv, "", e)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta == nil {
		t.Fatal("expected non-nil metadata")
	}
	if meta.Description != "a test package" {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.Slot.Slot != "0" || meta.Slot.Subslot != "1" {
		t.Errorf("Slot = %+v", meta.Slot)
	}
	if len(meta.Keywords) != 2 || meta.Keywords[0] != "amd64" {
		t.Errorf("Keywords = %v", meta.Keywords)
	}
	if len(meta.Iuse) != 2 || meta.Iuse[0].Flag != "foo" || meta.Iuse[0].Default != dep.DefaultEnabled {
		t.Errorf("Iuse = %+v", meta.Iuse)
	}
	if meta.Depend == nil || len(meta.Depend.Flatten()) != 2 {
		t.Errorf("Depend = %+v", meta.Depend)
	}
}

func TestCacheLoaderMissingFileReturnsNilNil(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	l := &CacheLoader{RepoPath: repoPath}
	meta, err := l.Load(cpv, "", e)
	if err != nil || meta != nil {
		t.Errorf("expected (nil, nil) for missing cache file, got (%v, %v)", meta, err)
	}
}

func TestCacheLoaderMissingMandatoryKeyIsInvalidPkg(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	writeCache(t, repoPath, "cat", "pkg-1", "EAPI=8\nSLOT=0\n")

	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	l := &CacheLoader{RepoPath: repoPath}
	_, err = l.Load(cpv, "", e)
	if err == nil {
		t.Fatal("expected error for missing DESCRIPTION")
	}
}

func TestCacheLoaderEapiMismatchIsInvalidPkg(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	writeCache(t, repoPath, "cat", "pkg-1", "EAPI=7\nDESCRIPTION=x\nSLOT=0\n")

	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	l := &CacheLoader{RepoPath: repoPath}
	_, err = l.Load(cpv, "", e)
	if err == nil {
		t.Fatal("expected error for EAPI mismatch")
	}
}

func TestCacheLoaderLogsWarningOnParseError(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	writeCache(t, repoPath, "cat", "pkg-1", "this line has no equals sign\n")

	core, logs := observer.New(zap.WarnLevel)
	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	l := &CacheLoader{RepoPath: repoPath, Logger: zap.New(core)}
	meta, err := l.Load(cpv, "", e)
	if err != nil || meta != nil {
		t.Fatalf("expected (nil, nil) on parse error, got (%v, %v)", meta, err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected exactly one warning logged, got %d", logs.Len())
	}
}

// recordingIndex records every eclass name IncrementalValues is
// queried with, so a test can check the names came from INHERITED and
// not from _eclasses_ when both keys are present.
type recordingIndex struct {
	queried []string
}

func (r *recordingIndex) IncrementalValues(eclass, key string) []string {
	r.queried = append(r.queried, eclass)
	if key == "IUSE" {
		return []string{"eclassflag"}
	}
	return nil
}

func TestInheritedWinsOverLegacyEclasses(t *testing.T) {
	repoPath := t.TempDir()
	e := eapi.MustGet("8")
	writeCache(t, repoPath, "cat", "pkg-1", ""+
		"EAPI=8\n"+
		"DESCRIPTION=x\n"+
		"SLOT=0\n"+
		"IUSE=+foo\n"+
		"_eclasses_=legacy-eclass 0123\n"+
		"INHERITED=modern-eclass\n")

	cpv, err := dep.ParseCpv("cat/pkg-1")
	if err != nil {
		t.Fatal(err)
	}
	idx := &recordingIndex{}
	l := &CacheLoader{RepoPath: repoPath, Eclasses: idx}
	meta, err := l.Load(cpv, "", e)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// One query per incremental key, each for INHERITED's only eclass.
	if len(idx.queried) != len(e.IncrementalKeys()) {
		t.Errorf("expected one eclass query per incremental key, got %v", idx.queried)
	}
	for _, q := range idx.queried {
		if q != "modern-eclass" {
			t.Errorf("expected INHERITED's eclass list to be consulted, got %v", idx.queried)
		}
	}
	found := false
	for _, f := range meta.Iuse {
		if f.Flag == "eclassflag" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected eclass-contributed IUSE flag to be left-extended, got %+v", meta.Iuse)
	}
}
