// Package ebuildkit ties together the atom/version/dependency-set engine
// for a Gentoo-style source package manager: parsing, comparing, and
// evaluating ebuild package metadata, plus the restriction-matching and
// repository-indexing layer built on top of it.
//
// The sub-packages version, dep, depset, restrict, eapi, repo, reposet,
// metadata, manifest, and config each own one layer; this root package
// holds only the error kinds shared across all of them.
package ebuildkit

import "fmt"

// InvalidVersionError reports a version string that is lexically or
// structurally invalid.
type InvalidVersionError struct {
	Value string
	Msg   string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Msg)
}

// InvalidDepError reports an atom that violates the PMS grammar or the
// active EAPI's feature set.
type InvalidDepError struct {
	Value string
	Msg   string
}

func (e *InvalidDepError) Error() string {
	return fmt.Sprintf("invalid dep %q: %s", e.Value, e.Msg)
}

// UnsupportedFeatureError reports a dep using a syntax feature its EAPI
// does not admit.
type UnsupportedFeatureError struct {
	Feature string
	Eapi    string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("feature %s not supported by EAPI %s", e.Feature, e.Eapi)
}

// Unwrap lets an unsupported-feature failure also satisfy errors.Is/As
// against *InvalidDepError: an atom using a feature its EAPI lacks is,
// from a caller matching on dep-parse failures, still an invalid dep
// for that EAPI.
func (e *UnsupportedFeatureError) Unwrap() error {
	return &InvalidDepError{Value: e.Feature, Msg: fmt.Sprintf("not supported by EAPI %s", e.Eapi)}
}

// UnknownEapiError reports a reference to an EAPI identifier that is not
// registered.
type UnknownEapiError struct {
	Id string
}

func (e *UnknownEapiError) Error() string {
	return fmt.Sprintf("unknown EAPI %q", e.Id)
}

// InvalidEapiError reports an EAPI identifier that fails the lexical class
// check, independent of whether it is registered.
type InvalidEapiError struct {
	Id string
}

func (e *InvalidEapiError) Error() string {
	return fmt.Sprintf("invalid EAPI identifier %q", e.Id)
}

// InvalidValueError is a free-text guarded failure, used for TOML/INI
// config fields and similar loosely typed inputs.
type InvalidValueError struct {
	Field string
	Msg   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Msg)
}

// InvalidRepoError reports a malformed repository.
type InvalidRepoError struct {
	Path string
	Msg  string
}

func (e *InvalidRepoError) Error() string {
	return fmt.Sprintf("invalid repo at %s: %s", e.Path, e.Msg)
}

// NotARepoError reports a path that does not look like a repository at
// all (missing profiles/repo_name etc).
type NotARepoError struct {
	Path string
}

func (e *NotARepoError) Error() string {
	return fmt.Sprintf("not a repo: %s", e.Path)
}

// NonexistentRepoError reports a reference to a repo id that isn't
// registered in a Config.
type NonexistentRepoError struct {
	Id string
}

func (e *NonexistentRepoError) Error() string {
	return fmt.Sprintf("nonexistent repo %q", e.Id)
}

// RepoInitError reports a failure while constructing a repo handle, e.g.
// a declared master that is not a registered ebuild repo. A masters-DAG
// cycle is reported as a ConfigError instead.
type RepoInitError struct {
	Id  string
	Msg string
}

func (e *RepoInitError) Error() string {
	return fmt.Sprintf("repo %q failed to initialize: %s", e.Id, e.Msg)
}

// InvalidPkgError reports that sourcing or metadata validation failed for
// a concrete package. Cpv is the package's string form (category/package-version).
type InvalidPkgError struct {
	Cpv string
	Msg string
}

func (e *InvalidPkgError) Error() string {
	return fmt.Sprintf("invalid pkg %s: %s", e.Cpv, e.Msg)
}

// InvalidManifestError reports a GLEP 44 Manifest line that fails the
// token-count invariant or an unrecognized KIND/algorithm.
type InvalidManifestError struct {
	Line string
	Msg  string
}

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid manifest line %q: %s", e.Line, e.Msg)
}

// ChecksumFailedError reports a checksum mismatch during manifest
// verification.
type ChecksumFailedError struct {
	Kind     string
	Algo     string
	Expected string
	Actual   string
}

func (e *ChecksumFailedError) Error() string {
	return fmt.Sprintf("checksum failed for %s (%s): expected %s, got %s", e.Kind, e.Algo, e.Expected, e.Actual)
}

// ConfigMissingError reports that portage config discovery found nothing.
type ConfigMissingError struct{}

func (e *ConfigMissingError) Error() string { return "no portage configuration found" }

// ConfigError reports any other config-loading failure.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %s", e.Msg) }

// BailError is returned by a shellapi.Interpreter to force the core to
// abort the current operation and propagate upward regardless of the
// tolerant-iteration policy elsewhere.
type BailError struct {
	Msg string
}

func (e *BailError) Error() string { return fmt.Sprintf("bail: %s", e.Msg) }
