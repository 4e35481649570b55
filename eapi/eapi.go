// Package eapi implements the profile registry that gates which ebuild
// language features, metadata keys, and shell-environment variables are
// admissible in a given version of the ebuild language (EAPI).
//
// EAPIs form a chain: each later EAPI inherits the previous one's tables
// and then enables/disables features and updates key/archive/env/econf
// tables, mirroring the way deps.dev/util/semver.System gates per-system
// parsing rules through small table lookups rather than one large
// conditional.
package eapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Feature is one gated ebuild-language capability.
type Feature int

const (
	RdependDefault Feature = iota
	IuseDefaults
	SlotDeps
	Blockers
	DomanLangDetect
	SrcUriRenames
	UseDeps
	DodocRecursive
	DomanLangOverride
	UseDepDefaults
	RequiredUse
	UseConfArg
	NewSupportsStdin
	ParallelTests
	RequiredUseOneOf
	SlotOps
	Subslots
	NonfatalDie
	GlobalFailglob
	UnpackExtendedPath
	UnpackCaseInsensitive
	TrailingSlash
	ConsistentFileOpts
	DosymRelative
	SrcUriUnrestrict
	UsevTwoArgs
	RepoIds
	QueryDeps
	QueryHostRoot

	numFeatures
)

// Phase identifies one of the ordered build-lifecycle operations.
type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhaseUnpack      Phase = "unpack"
	PhasePrepare     Phase = "prepare"
	PhaseConfigure   Phase = "configure"
	PhaseCompile     Phase = "compile"
	PhaseTest        Phase = "test"
	PhaseInstall     Phase = "install"
	PhasePreinst     Phase = "preinst"
	PhasePostinst    Phase = "postinst"
	PhasePrerm       Phase = "prerm"
	PhasePostrm      Phase = "postrm"
	PhaseConfig      Phase = "config"
	PhaseInfo        Phase = "info"
	PhaseNofetch     Phase = "nofetch"
	PhasePretend     Phase = "pretend"
)

// Operation is a top-level package-manager action composed of phases.
type Operation string

const (
	OpBuild     Operation = "build"
	OpInstall   Operation = "install"
	OpUninstall Operation = "uninstall"
	OpReplace   Operation = "replace"
	OpConfig    Operation = "config"
	OpInfo      Operation = "info"
	OpNofetch   Operation = "nofetch"
	OpPretend   Operation = "pretend"
)

// EconfOption describes an auto-injected econf flag: the set of
// substrings sought in `./configure --help` output, and the default
// value to pass if the script supports it and the user hasn't.
type EconfOption struct {
	Markers []string
	Default string
}

// EAPI describes one ebuild-language profile version.
type EAPI struct {
	id    string
	index int // registration order

	features map[Feature]bool

	phases map[Operation][]Phase

	mandatoryKeys   map[string]bool
	optionalKeys    map[string]bool
	incrementalKeys map[string]bool
	depKeys         map[string]bool

	archiveExts []string // registration order; ArchivesRegex sorts longest-first
	archiveCI   bool
	archiveRe   *regexp.Regexp

	envVars map[string][]string // var -> scopes

	econf map[string]EconfOption
}

// Id returns the EAPI identifier string.
func (e *EAPI) Id() string { return e.id }

// Index returns the EAPI's registration order, used to implement Range
// and to compare EAPIs for the "eapi1 <= eapi2" monotonic-admission
// property.
func (e *EAPI) Index() int { return e.index }

// Has reports whether the EAPI enables the given feature.
func (e *EAPI) Has(f Feature) bool { return e.features[f] }

// Phases returns the ordered phase list for op.
func (e *EAPI) Phases(op Operation) []Phase {
	ps := e.phases[op]
	out := make([]Phase, len(ps))
	copy(out, ps)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DepKeys returns the dependency metadata keys (DEPEND, RDEPEND, ...)
// recognized by this EAPI, sorted.
func (e *EAPI) DepKeys() []string { return sortedKeys(e.depKeys) }

// MandatoryKeys returns the metadata keys that must be present, sorted.
func (e *EAPI) MandatoryKeys() []string { return sortedKeys(e.mandatoryKeys) }

// MetadataKeys returns every recognized metadata key (mandatory plus
// optional), sorted.
func (e *EAPI) MetadataKeys() []string {
	m := make(map[string]bool, len(e.mandatoryKeys)+len(e.optionalKeys))
	for k := range e.mandatoryKeys {
		m[k] = true
	}
	for k := range e.optionalKeys {
		m[k] = true
	}
	return sortedKeys(m)
}

// IncrementalKeys returns the metadata keys whose eclass-level values
// left-extend the ebuild-level value, sorted.
func (e *EAPI) IncrementalKeys() []string { return sortedKeys(e.incrementalKeys) }

// IsMandatoryKey reports whether key must be present in this EAPI.
func (e *EAPI) IsMandatoryKey(key string) bool { return e.mandatoryKeys[key] }

// IsIncrementalKey reports whether key accumulates by left-extension.
func (e *EAPI) IsIncrementalKey(key string) bool { return e.incrementalKeys[key] }

// ArchivesRegex returns a cached regex matching any archive extension
// recognized by this EAPI, with longest-extension-first precedence. It
// is case-insensitive iff UnpackCaseInsensitive is enabled.
func (e *EAPI) ArchivesRegex() *regexp.Regexp {
	if e.archiveRe != nil {
		return e.archiveRe
	}
	exts := make([]string, len(e.archiveExts))
	copy(exts, e.archiveExts)
	sort.Slice(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })
	var quoted []string
	for _, ext := range exts {
		quoted = append(quoted, regexp.QuoteMeta(ext))
	}
	pattern := "(?:" + strings.Join(quoted, "|") + ")$"
	if e.archiveCI {
		pattern = "(?i)" + pattern
	}
	e.archiveRe = regexp.MustCompile(pattern)
	return e.archiveRe
}

// EnvScopes returns the scopes in which var is exported in this EAPI.
func (e *EAPI) EnvScopes(v string) ([]string, bool) {
	s, ok := e.envVars[v]
	return s, ok
}

// EconfOptions returns the configure-script auto-option table.
func (e *EAPI) EconfOptions() map[string]EconfOption {
	out := make(map[string]EconfOption, len(e.econf))
	for k, v := range e.econf {
		out[k] = v
	}
	return out
}

func (e *EAPI) String() string { return e.id }

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_.-]*$`)

// ValidId reports whether s is lexically valid as an EAPI identifier,
// independent of whether it is registered.
func ValidId(s string) bool { return idPattern.MatchString(s) }

type invalidIdError struct{ id string }

func (e *invalidIdError) Error() string { return fmt.Sprintf("invalid EAPI identifier %q", e.id) }

type unknownError struct{ id string }

func (e *unknownError) Error() string { return fmt.Sprintf("unknown EAPI %q", e.id) }

// Get returns the registered EAPI named id.
func Get(id string) (*EAPI, error) {
	if !ValidId(id) {
		return nil, &invalidIdError{id}
	}
	e, ok := registry[id]
	if !ok {
		return nil, &unknownError{id}
	}
	return e, nil
}

// MustGet is like Get but panics on error; intended for package-level
// constants built from known-good identifiers.
func MustGet(id string) *EAPI {
	e, err := Get(id)
	if err != nil {
		panic(err)
	}
	return e
}

// LessEqual reports whether a was registered at or before b, i.e. a's
// feature set is a subset of (or equal to) b's under the registry's
// strictly-additive-by-default inheritance chain.
func LessEqual(a, b *EAPI) bool { return a.index <= b.index }

// All returns every registered EAPI in registration order.
func All() []*EAPI {
	out := make([]*EAPI, len(ordered))
	copy(out, ordered)
	return out
}

// Range accepts "A..B" (exclusive of B), "A..=B" (inclusive of B), with
// either endpoint possibly empty (open), or the special spec "U" meaning
// "from the first unofficial EAPI to the last". It returns the matching
// EAPIs in registration order.
func Range(spec string) ([]*EAPI, error) {
	if spec == "U" {
		for i, e := range ordered {
			if strings.HasPrefix(e.id, "U") || e.id == "pkgcraft" {
				return ordered[i:], nil
			}
		}
		return nil, fmt.Errorf("no unofficial EAPI registered")
	}
	inclusive := strings.Contains(spec, "..=")
	sep := ".."
	if inclusive {
		sep = "..="
	}
	parts := strings.SplitN(spec, sep, 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range spec %q", spec)
	}
	lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	loIdx, hiIdx := 0, len(ordered)-1
	if lo != "" {
		e, err := Get(lo)
		if err != nil {
			return nil, err
		}
		loIdx = e.index
	}
	if hi != "" {
		e, err := Get(hi)
		if err != nil {
			return nil, err
		}
		hiIdx = e.index
		if !inclusive {
			hiIdx--
		}
	}
	if loIdx > hiIdx {
		return nil, nil
	}
	return ordered[loIdx : hiIdx+1], nil
}

var (
	registry = map[string]*EAPI{}
	ordered  []*EAPI
)

// register clones the previous EAPI (if any) and applies diff, then adds
// the result to the registry.
func register(id string, diff func(e *EAPI)) *EAPI {
	var e *EAPI
	if len(ordered) == 0 {
		e = &EAPI{
			id:              id,
			features:        map[Feature]bool{},
			phases:          map[Operation][]Phase{},
			mandatoryKeys:   map[string]bool{},
			optionalKeys:    map[string]bool{},
			incrementalKeys: map[string]bool{},
			depKeys:         map[string]bool{},
			envVars:         map[string][]string{},
			econf:           map[string]EconfOption{},
		}
	} else {
		e = ordered[len(ordered)-1].clone()
		e.id = id
	}
	e.index = len(ordered)
	diff(e)
	registry[id] = e
	ordered = append(ordered, e)
	return e
}

func (e *EAPI) clone() *EAPI {
	c := &EAPI{
		id:              e.id,
		index:           e.index,
		features:        cloneFeatureMap(e.features),
		phases:          map[Operation][]Phase{},
		mandatoryKeys:   cloneBoolMap(e.mandatoryKeys),
		optionalKeys:    cloneBoolMap(e.optionalKeys),
		incrementalKeys: cloneBoolMap(e.incrementalKeys),
		depKeys:         cloneBoolMap(e.depKeys),
		archiveExts:     append([]string(nil), e.archiveExts...),
		archiveCI:       e.archiveCI,
		envVars:         map[string][]string{},
		econf:           map[string]EconfOption{},
	}
	for op, ps := range e.phases {
		c.phases[op] = append([]Phase(nil), ps...)
	}
	for k, v := range e.envVars {
		c.envVars[k] = append([]string(nil), v...)
	}
	for k, v := range e.econf {
		c.econf[k] = v
	}
	return c
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	c := make(map[string]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneFeatureMap(m map[Feature]bool) map[Feature]bool {
	c := make(map[Feature]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
