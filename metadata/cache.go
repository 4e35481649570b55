// Package metadata reads ebuild package metadata, either from a
// repo's metadata/md5-cache entries or by sourcing the ebuild through
// an external shell interpreter, and implements repo.Loader so repo's
// Ebuild variant can populate Package.Meta on demand (spec.md §4.7).
//
// Grounded on deps.dev/util/resolve/pypi/internal/pypi.go's
// directory-scan-then-parse-record pattern (one flat KEY=VALUE record
// per package, read lazily and cached by the caller) and on
// encoding/xml's tag-struct precedent applied here to a simpler
// line-oriented KEY=VALUE format instead.
package metadata

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/depset"
	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/repo"
)

// rawRecord is the parsed KEY=VALUE content of one md5-cache entry,
// plus whichever of the two eclass-naming keys was present.
type rawRecord struct {
	kv        map[string]string
	eclasses  []string // from INHERITED if present, else _eclasses_
}

// parseCacheLines parses a md5-cache entry's bytes into KEY=VALUE
// pairs. It tolerates neither comments nor continuation lines: the
// md5-cache format (unlike ebuilds themselves) is a flat, already-
// evaluated key/value dump with exactly one assignment per line.
func parseCacheLines(data []byte) (*rawRecord, error) {
	kv := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, fmt.Errorf("malformed cache line %q: missing '='", line)
		}
		kv[line[:idx]] = line[idx+1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	r := &rawRecord{kv: kv}
	if inherited, ok := kv["INHERITED"]; ok && strings.TrimSpace(inherited) != "" {
		r.eclasses = strings.Fields(inherited)
	} else if legacy, ok := kv["_eclasses_"]; ok {
		// "_eclasses_" pairs eclass name with checksum: name chksum
		// name chksum ...; only the names matter for left-extension
		// lookups, the checksums are carried separately onto
		// Metadata.Inherited.
		fields := strings.Fields(legacy)
		for i := 0; i+1 < len(fields); i += 2 {
			r.eclasses = append(r.eclasses, fields[i])
		}
	}
	return r, nil
}

// eclassRefs builds the Inherited checksum list from either cache key,
// preferring INHERITED's (name-only) form when present since that is
// the modern key; _eclasses_ carries explicit checksums.
func eclassRefs(kv map[string]string) []repo.EclassRef {
	if legacy, ok := kv["_eclasses_"]; ok && strings.TrimSpace(kv["INHERITED"]) == "" {
		fields := strings.Fields(legacy)
		refs := make([]repo.EclassRef, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			refs = append(refs, repo.EclassRef{Name: fields[i], Checksum: fields[i+1]})
		}
		return refs
	}
	if inherited, ok := kv["INHERITED"]; ok {
		names := strings.Fields(inherited)
		refs := make([]repo.EclassRef, len(names))
		for i, n := range names {
			refs[i] = repo.EclassRef{Name: n}
		}
		return refs
	}
	return nil
}

// EclassIndex resolves the per-eclass contribution to an incremental
// metadata key, in eclass definition order, so the loader can
// left-extend a package's own token vector the way inherit-time
// accumulation would have (spec.md §4.7, DESIGN NOTES' "incremental
// keys accumulate by left-extension"). A nil EclassIndex disables
// left-extension entirely: the cache's own value for an incremental
// key is trusted as already fully accumulated, which holds for
// md5-cache entries generated by real tooling (they store the
// post-accumulation value), making EclassIndex strictly an enrichment
// for callers that maintain one.
type EclassIndex interface {
	IncrementalValues(eclass, key string) []string
}

// CacheLoader implements repo.Loader by reading metadata/md5-cache
// entries under RepoPath. Logger receives the "parse error" warning
// spec.md §4.7 calls for; a nil Logger is treated as a no-op sink
// (callers that don't care about cache warnings simply leave it
// unset), injected per call site rather than read from a package
// global — config.Config is the one place that actually constructs
// and owns a *zap.Logger for the whole process.
type CacheLoader struct {
	RepoPath string
	Eclasses EclassIndex
	Logger   *zap.Logger
}

var _ repo.Loader = (*CacheLoader)(nil)

func (l *CacheLoader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Load reads the md5-cache entry for cpv. A missing cache file is not
// an error: it returns (nil, nil), matching spec.md §4.7's "returns
// None if the cache file is absent". A parse error is logged as a
// warning and also returns (nil, nil), per "emits a warning and
// returns None on parse error" — the caller (repo.Ebuild.loadOne)
// treats a nil, nil Load result as "no metadata available" rather than
// a hard failure, preserving the tolerant-iteration policy.
func (l *CacheLoader) Load(cpv dep.Cpv, ebuildPath string, e *eapi.EAPI) (*repo.Metadata, error) {
	cachePath := filepath.Join(l.RepoPath, "metadata", "md5-cache", cpv.Category, cpv.PF())
	data, err := os.ReadFile(cachePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := parseCacheLines(data)
	if err != nil {
		l.logger().Warn("metadata cache parse error", zap.String("path", cachePath), zap.Error(err))
		return nil, nil
	}

	meta, buildErr := buildMetadata(cpv, e, rec, l.Eclasses)
	if buildErr != nil {
		return nil, buildErr
	}
	return meta, nil
}

// buildMetadata converts a parsed cache record into a repo.Metadata,
// validating mandatory keys and the EAPI match, and applying
// incremental-key left-extension.
func buildMetadata(cpv dep.Cpv, e *eapi.EAPI, rec *rawRecord, idx EclassIndex) (*repo.Metadata, error) {
	kv := rec.kv

	if cacheEapi, ok := kv["EAPI"]; ok && cacheEapi != "" && cacheEapi != e.Id() {
		return nil, &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: fmt.Sprintf("cache EAPI %q does not match parsed EAPI %q", cacheEapi, e.Id())}
	}

	for _, key := range e.MandatoryKeys() {
		if _, ok := kv[key]; !ok {
			return nil, &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: fmt.Sprintf("missing mandatory key %s", key)}
		}
	}

	resolved := map[string][]string{}
	for _, key := range e.IncrementalKeys() {
		resolved[key] = leftExtend(rec.eclasses, key, strings.Fields(kv[key]), idx)
	}

	meta := &repo.Metadata{
		Eapi:        e,
		Description: kv["DESCRIPTION"],
		Homepage:    kv["HOMEPAGE"],
		Slot:        parseSlotValue(kv["SLOT"]),
		License:     fieldsOrResolved("LICENSE", kv, resolved),
		Keywords:    strings.Fields(kv["KEYWORDS"]),
		Iuse:        parseIuse(fieldsOrResolved("IUSE", kv, resolved)),
		Properties:  fieldsOrResolved("PROPERTIES", kv, resolved),
		Restrict:    fieldsOrResolved("RESTRICT", kv, resolved),
		Inherit:     strings.Fields(kv["INHERIT"]),
		Inherited:   eclassRefs(kv),
	}

	var err error
	if meta.Depend, err = parseDepKey(kv, "DEPEND", depset.KindPkgDepSet, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.Rdepend, err = parseDepKey(kv, "RDEPEND", depset.KindPkgDepSet, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.Bdepend, err = parseDepKey(kv, "BDEPEND", depset.KindPkgDepSet, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.Idepend, err = parseDepKey(kv, "IDEPEND", depset.KindPkgDepSet, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.Pdepend, err = parseDepKey(kv, "PDEPEND", depset.KindPkgDepSet, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.RequiredUse, err = parseDepKey(kv, "REQUIRED_USE", depset.KindRequiredUse, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}
	if meta.SrcUri, err = parseDepKey(kv, "SRC_URI", depset.KindSrcUri, e); err != nil {
		return nil, wrapInvalidPkg(cpv, err)
	}

	return meta, nil
}

func wrapInvalidPkg(cpv dep.Cpv, err error) error {
	return &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: err.Error()}
}

func fieldsOrResolved(key string, kv map[string]string, resolved map[string][]string) []string {
	if v, ok := resolved[key]; ok {
		return v
	}
	return strings.Fields(kv[key])
}

// leftExtend prepends each inherited eclass's own contribution to key
// (in eclass order) ahead of the package-level tokens, the
// "left-extend the deque" rule of spec.md §4.7. With no EclassIndex,
// own is returned unmodified since the cache already stores the
// post-accumulation value.
func leftExtend(eclasses []string, key string, own []string, idx EclassIndex) []string {
	if idx == nil || len(eclasses) == 0 {
		return own
	}
	var out []string
	for _, ec := range eclasses {
		out = append(out, idx.IncrementalValues(ec, key)...)
	}
	return append(out, own...)
}

func parseDepKey(kv map[string]string, key string, kind depset.Kind, e *eapi.EAPI) (*depset.DepSet, error) {
	s, ok := kv[key]
	if !ok || strings.TrimSpace(s) == "" {
		return nil, nil
	}
	leafParse := depset.ParsePkgDep
	switch kind {
	case depset.KindLicense:
		leafParse = depset.ParseStringLeaf
	case depset.KindRequiredUse:
		leafParse = depset.ParseStringLeaf
	case depset.KindSrcUri:
		leafParse = depset.ParseUri
	}
	return depset.Parse(s, kind, e, leafParse)
}

func parseIuse(tokens []string) []repo.IuseFlag {
	out := make([]repo.IuseFlag, len(tokens))
	for i, t := range tokens {
		switch {
		case strings.HasPrefix(t, "+"):
			out[i] = repo.IuseFlag{Flag: t[1:], Default: dep.DefaultEnabled}
		case strings.HasPrefix(t, "-"):
			out[i] = repo.IuseFlag{Flag: t[1:], Default: dep.DefaultDisabled}
		default:
			out[i] = repo.IuseFlag{Flag: t, Default: dep.NoDefault}
		}
	}
	return out
}

// parseSlotValue parses the bare SLOT value ("slot" or "slot/subslot",
// never an operator) into a dep.Slot.
func parseSlotValue(s string) dep.Slot {
	if s == "" {
		return dep.Slot{}
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return dep.Slot{Slot: s[:i], Subslot: s[i+1:]}
	}
	return dep.Slot{Slot: s}
}
