// Package manifest parses GLEP 44 Manifest files and verifies distfile
// checksums against them, grounded on the hash-file-then-hex-compare
// pattern of the corpus's own package-checksum verifier
// (debutils/verify.go's computeFileSHA256 plus hex comparison), scaled
// here to a configurable set of required algorithms instead of one
// fixed hash.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	ebuildkit "ebuildkit.dev/ebuildkit"
)

// Kind is a GLEP 44 manifest entry kind.
type Kind string

const (
	KindAux    Kind = "AUX"
	KindDist   Kind = "DIST"
	KindEbuild Kind = "EBUILD"
	KindMisc   Kind = "MISC"
)

func validKind(k string) bool {
	switch Kind(k) {
	case KindAux, KindDist, KindEbuild, KindMisc:
		return true
	default:
		return false
	}
}

// Algorithm is a recognized checksum algorithm name, always upper
// case per GLEP 44.
type Algorithm string

const (
	AlgoBlake2B Algorithm = "BLAKE2B"
	AlgoBlake3  Algorithm = "BLAKE3"
	AlgoSha512  Algorithm = "SHA512"
)

func validAlgorithm(a string) bool {
	switch Algorithm(a) {
	case AlgoBlake2B, AlgoBlake3, AlgoSha512:
		return true
	default:
		return false
	}
}

// File is one parsed Manifest line: KIND NAME SIZE (HASH VAL)+.
type File struct {
	Kind     Kind
	Name     string
	Size     int64
	Checksums map[Algorithm]string // hex-encoded, as written in the file
}

// ParseLine parses a single Manifest line. The token-count invariant
// (>= 5, odd) and the KIND/algorithm vocabularies are enforced per
// spec.md §4.8; any violation is an *ebuildkit.InvalidManifestError.
func ParseLine(line string) (*File, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || len(fields)%2 == 0 {
		return nil, &ebuildkit.InvalidManifestError{Line: line, Msg: fmt.Sprintf("expected >=5 odd-count tokens, got %d", len(fields))}
	}
	if !validKind(fields[0]) {
		return nil, &ebuildkit.InvalidManifestError{Line: line, Msg: "unrecognized KIND " + fields[0]}
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, &ebuildkit.InvalidManifestError{Line: line, Msg: "invalid SIZE " + fields[2]}
	}

	f := &File{
		Kind:      Kind(fields[0]),
		Name:      fields[1],
		Size:      size,
		Checksums: map[Algorithm]string{},
	}
	for i := 3; i+1 < len(fields); i += 2 {
		algo, val := fields[i], fields[i+1]
		if !validAlgorithm(algo) {
			return nil, &ebuildkit.InvalidManifestError{Line: line, Msg: "unrecognized algorithm " + algo}
		}
		f.Checksums[Algorithm(algo)] = val
	}
	return f, nil
}

// Parse parses an entire Manifest file's content, one File per
// non-blank line.
func Parse(r io.Reader) ([]*File, error) {
	var out []*File
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
