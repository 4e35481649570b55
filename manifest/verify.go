package manifest

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"

	ebuildkit "ebuildkit.dev/ebuildkit"
)

// newHash builds a fresh hash.Hash for algo, grounded on the corpus's
// own computeFileSHA256-style "open a hasher, io.Copy into it, hex the
// sum" pattern, extended to the three GLEP 44 algorithms this format
// actually uses.
func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case AlgoSha512:
		return sha512.New(), nil
	case AlgoBlake2B:
		return blake2b.New512(nil)
	case AlgoBlake3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %s", algo)
	}
}

// hashFile computes algo's hex digest of the file at path.
func hashFile(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// dataPath resolves where a ManifestFile's bytes live on disk: AUX
// entries under pkgdir/files/, DIST entries under distdir/, everything
// else (EBUILD, MISC) directly under pkgdir, per spec.md §4.8.
func dataPath(f *File, pkgdir, distdir string) string {
	switch f.Kind {
	case KindAux:
		return filepath.Join(pkgdir, "files", f.Name)
	case KindDist:
		return filepath.Join(distdir, f.Name)
	default:
		return filepath.Join(pkgdir, f.Name)
	}
}

// Verify checks every file in files against its recorded checksums,
// restricted to the algorithms in requiredHashes (spec.md §4.8:
// "Algorithms NOT in required_hashes are ignored even if mismatched").
// The first mismatch returns *ebuildkit.ChecksumFailedError; an I/O
// error (missing file, permission) propagates unchanged. A nil error
// return means every required algorithm matched for every file
// (property 9 of spec.md §8).
func Verify(files []*File, requiredHashes []Algorithm, pkgdir, distdir string) error {
	for _, f := range files {
		path := dataPath(f, pkgdir, distdir)
		for _, algo := range requiredHashes {
			expected, ok := f.Checksums[algo]
			if !ok {
				continue
			}
			actual, err := hashFile(path, algo)
			if err != nil {
				return err
			}
			if actual != expected {
				return &ebuildkit.ChecksumFailedError{
					Kind:     string(f.Kind),
					Algo:     string(algo),
					Expected: expected,
					Actual:   actual,
				}
			}
		}
	}
	return nil
}
