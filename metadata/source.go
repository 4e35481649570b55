package metadata

import (
	"strings"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/repo"
	"ebuildkit.dev/ebuildkit/shellapi"
)

// requiredScalarKeys and requiredArrayKeys list the variables Source
// reads back after sourcing, per spec.md §4.7's exact roster.
var requiredScalarKeys = []string{
	"DESCRIPTION", "SLOT", "EAPI", "HOMEPAGE",
}

var requiredArrayKeys = []string{
	"LICENSE", "KEYWORDS", "IUSE",
	"DEPEND", "RDEPEND", "BDEPEND", "IDEPEND", "PDEPEND",
	"PROPERTIES", "RESTRICT", "REQUIRED_USE", "SRC_URI",
	"INHERIT", "INHERITED",
}

// Source invokes interp to source the ebuild at path, then reads back
// its metadata variables and applies incremental-key left-extension
// (spec.md §4.7). A *ebuildkit.BailError returned by interp propagates
// unchanged, overriding the normally tolerant per-package error
// policy (spec.md §7).
func Source(cpv dep.Cpv, path string, e *eapi.EAPI, interp shellapi.Interpreter, idx EclassIndex) (*repo.Metadata, error) {
	interp.ResetState()
	if err := interp.SourceEbuild(path); err != nil {
		return nil, err
	}

	scalars := map[string]string{}
	for _, key := range requiredScalarKeys {
		v, ok := interp.GetVar(key)
		if !ok && e.IsMandatoryKey(key) {
			return nil, &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: "missing mandatory key " + key}
		}
		scalars[key] = v
	}
	if scalars["EAPI"] != e.Id() {
		return nil, &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: "sourced EAPI " + scalars["EAPI"] + " does not match parsed EAPI " + e.Id()}
	}

	arrays := map[string][]string{}
	for _, key := range requiredArrayKeys {
		vals, ok := interp.GetVarArray(key)
		if !ok {
			if isMandatoryArrayKey(e, key) {
				return nil, &ebuildkit.InvalidPkgError{Cpv: cpv.String(), Msg: "missing mandatory key " + key}
			}
			continue
		}
		arrays[key] = vals
	}

	var eclasses []string
	if inherited := arrays["INHERITED"]; len(inherited) > 0 {
		eclasses = inherited
	}

	kv := map[string]string{
		"DESCRIPTION": scalars["DESCRIPTION"],
		"SLOT":        scalars["SLOT"],
		"HOMEPAGE":    scalars["HOMEPAGE"],
	}
	for _, key := range requiredArrayKeys {
		kv[key] = strings.Join(arrays[key], " ")
	}

	// buildMetadata applies leftExtend once, uniformly, for every key
	// in e.IncrementalKeys() — the same codepath Load uses — so the
	// package-level (not yet eclass-extended) tokens are passed here.
	rec := &rawRecord{kv: kv, eclasses: eclasses}
	return buildMetadata(cpv, e, rec, idx)
}

func isMandatoryArrayKey(e *eapi.EAPI, key string) bool {
	for _, mk := range e.MandatoryKeys() {
		if mk == key {
			return true
		}
	}
	return false
}
