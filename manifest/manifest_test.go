package manifest

import (
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLineValid(t *testing.T) {
	f, err := ParseLine("DIST foo-1.0.tar.gz 1024 BLAKE2B abcd SHA512 ef01")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if f.Kind != KindDist || f.Name != "foo-1.0.tar.gz" || f.Size != 1024 {
		t.Errorf("got %+v", f)
	}
	if f.Checksums[AlgoBlake2B] != "abcd" || f.Checksums[AlgoSha512] != "ef01" {
		t.Errorf("checksums = %+v", f.Checksums)
	}
}

func TestParseLineTokenCountInvariant(t *testing.T) {
	// Even token count (6) violates the >=5-and-odd invariant.
	_, err := ParseLine("DIST foo 1024 BLAKE2B abcd SHA512")
	if err == nil {
		t.Fatal("expected InvalidManifestError for even token count")
	}
	// Fewer than 5 tokens.
	_, err = ParseLine("DIST foo 1024")
	if err == nil {
		t.Fatal("expected InvalidManifestError for short line")
	}
}

func TestParseLineUnknownKindAndAlgorithm(t *testing.T) {
	if _, err := ParseLine("BOGUS foo 1024 SHA512 ab"); err == nil {
		t.Error("expected error for unknown KIND")
	}
	if _, err := ParseLine("DIST foo 1024 MD5 ab"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

// E6-equivalent. Checksum verification against a real SHA512 digest.
func TestVerifySucceedsOnMatchingSha512(t *testing.T) {
	dir := t.TempDir()
	distdir := filepath.Join(dir, "distfiles")
	if err := os.MkdirAll(distdir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("hello distfile")
	if err := os.WriteFile(filepath.Join(distdir, "foo.tar.gz"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha512.Sum512(content)
	digest := hex.EncodeToString(sum[:])

	f := &File{Kind: KindDist, Name: "foo.tar.gz", Size: int64(len(content)), Checksums: map[Algorithm]string{
		AlgoSha512: digest,
	}}
	if err := Verify([]*File{f}, []Algorithm{AlgoSha512}, dir, distdir); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyFailsOnMismatch(t *testing.T) {
	dir := t.TempDir()
	distdir := filepath.Join(dir, "distfiles")
	if err := os.MkdirAll(distdir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(distdir, "foo.tar.gz"), []byte("actual content"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &File{Kind: KindDist, Name: "foo.tar.gz", Checksums: map[Algorithm]string{
		AlgoSha512: strings.Repeat("00", 64),
	}}
	err := Verify([]*File{f}, []Algorithm{AlgoSha512}, dir, distdir)
	if err == nil {
		t.Fatal("expected ChecksumFailedError")
	}
}

// Property 9 (soundness, non-required half): an algorithm present on
// disk but absent from required_hashes is never even computed, so a
// mismatch in it cannot fail verification.
func TestVerifyIgnoresAlgorithmsNotRequired(t *testing.T) {
	dir := t.TempDir()
	distdir := filepath.Join(dir, "distfiles")
	if err := os.MkdirAll(distdir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(distdir, "foo.tar.gz"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &File{Kind: KindDist, Name: "foo.tar.gz", Checksums: map[Algorithm]string{
		AlgoBlake2B: "not-even-hex-and-wrong",
	}}
	// required_hashes is SHA512, which this file doesn't even list, so
	// there is nothing to check and Verify must succeed.
	if err := Verify([]*File{f}, []Algorithm{AlgoSha512}, dir, distdir); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyAuxFileUnderPkgdirFiles(t *testing.T) {
	dir := t.TempDir()
	filesDir := filepath.Join(dir, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("a patch")
	if err := os.WriteFile(filepath.Join(filesDir, "fix.patch"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha512.Sum512(content)
	digest := hex.EncodeToString(sum[:])

	f := &File{Kind: KindAux, Name: "fix.patch", Checksums: map[Algorithm]string{AlgoSha512: digest}}
	if err := Verify([]*File{f}, []Algorithm{AlgoSha512}, dir, ""); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
