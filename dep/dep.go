package dep

import (
	"regexp"
	"strings"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/eapi"
	"ebuildkit.dev/ebuildkit/version"
)

// Blocker distinguishes a weak ("!") from a strong ("!!") blocker prefix.
type Blocker int

const (
	NoBlocker Blocker = iota
	WeakBlocker
	StrongBlocker
)

func (b Blocker) String() string {
	switch b {
	case WeakBlocker:
		return "!"
	case StrongBlocker:
		return "!!"
	default:
		return ""
	}
}

// SlotOperator marks the trailing "=" or "*" forms of a slot dependency.
type SlotOperator int

const (
	SlotOpNone SlotOperator = iota
	SlotOpEqual              // ":="  or  "slot="
	SlotOpStar               // ":*"
)

// Slot is a parsed slot dependency. Slot and Subslot are empty when the
// dep used the bare ":=" or ":*" forms.
type Slot struct {
	Slot    string
	Subslot string
	Op      SlotOperator
}

func (s *Slot) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteByte(':')
	switch s.Op {
	case SlotOpStar:
		b.WriteByte('*')
		return b.String()
	case SlotOpEqual:
		if s.Slot == "" {
			b.WriteByte('=')
			return b.String()
		}
	}
	b.WriteString(s.Slot)
	if s.Subslot != "" {
		b.WriteByte('/')
		b.WriteString(s.Subslot)
	}
	if s.Op == SlotOpEqual {
		b.WriteByte('=')
	}
	return b.String()
}

// UseDefault is the parenthesised default marker on a USE-dep flag.
type UseDefault int

const (
	NoDefault UseDefault = iota
	DefaultEnabled
	DefaultDisabled
)

// UseDepKind distinguishes the six USE-dep forms from PMS §8.2.6.4.
type UseDepKind int

const (
	UseEnabled UseDepKind = iota
	UseDisabled
	UseConditionalEnabled  // flag=
	UseConditionalDisabled // !flag=
	UseConditionalOrEqual  // flag?  (enabled if requested on parent, or absent)
	UseConditionalNegated  // !flag? (disabled if requested on parent, or absent)
)

// UseDep is a single entry inside a "[...]" USE-dependency list.
type UseDep struct {
	Flag    string
	Kind    UseDepKind
	Default UseDefault
}

func (u UseDep) String() string {
	var b strings.Builder
	switch u.Kind {
	case UseDisabled:
		b.WriteByte('-')
	case UseConditionalDisabled, UseConditionalNegated:
		b.WriteByte('!')
	}
	b.WriteString(u.Flag)
	switch u.Default {
	case DefaultEnabled:
		b.WriteString("(+)")
	case DefaultDisabled:
		b.WriteString("(-)")
	}
	switch u.Kind {
	case UseConditionalEnabled, UseConditionalDisabled:
		b.WriteByte('=')
	case UseConditionalOrEqual, UseConditionalNegated:
		b.WriteByte('?')
	}
	return b.String()
}

// Dep is a full dependency atom: a Cpv extended with operator, blocker,
// slot spec, USE-deps, and repo-id. Version is nil when no operator is
// present.
type Dep struct {
	Cpn
	Version  *version.Version
	Operator version.Operator
	Blocker  Blocker
	Slot     *Slot
	UseDeps  []UseDep
	Repo     string
}

var repoIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

type parser struct {
	s   string
	pos int
	e   *eapi.EAPI
}

func (p *parser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) rest() string { return p.s[p.pos:] }

// Parse parses a full dependency atom string under the given EAPI,
// enforcing every EAPI-gated grammar feature named in the atom grammar.
func Parse(s string, e *eapi.EAPI) (*Dep, error) {
	p := &parser{s: s, e: e}
	d := &Dep{}

	switch {
	case strings.HasPrefix(p.rest(), "!!"):
		d.Blocker = StrongBlocker
		p.pos += 2
	case strings.HasPrefix(p.rest(), "!"):
		d.Blocker = WeakBlocker
		p.pos += 1
	}
	if d.Blocker != NoBlocker && !e.Has(eapi.Blockers) {
		return nil, &ebuildkit.UnsupportedFeatureError{Feature: "blockers", Eapi: e.Id()}
	}

	// Detect the operator prefix by hand rather than delegating to the
	// version lexer's trailing-"*" heuristic: that heuristic only works
	// when given exactly the cpn+version segment, which we haven't
	// isolated yet (it may be followed by a slot dep, use deps, or a
	// repo id, none of which should influence the "=*" decision).
	opLen := 0
	switch {
	case strings.HasPrefix(p.rest(), "<="), strings.HasPrefix(p.rest(), ">="):
		opLen = 2
	case strings.HasPrefix(p.rest(), "<"), strings.HasPrefix(p.rest(), ">"),
		strings.HasPrefix(p.rest(), "="), strings.HasPrefix(p.rest(), "~"):
		opLen = 1
	}
	opChars := p.rest()[:opLen]
	p.pos += opLen

	// The Cpn/version portion runs up to the first ':' or '['.
	rem := p.rest()
	cut := strings.IndexAny(rem, ":[")
	if cut < 0 {
		cut = len(rem)
	}
	cpnVer := rem[:cut]
	p.pos += cut

	switch opChars {
	case "<=":
		d.Operator = version.OpLE
	case ">=":
		d.Operator = version.OpGE
	case "<":
		d.Operator = version.OpLT
	case ">":
		d.Operator = version.OpGT
	case "~":
		d.Operator = version.OpApprox
	case "=":
		if strings.HasSuffix(cpnVer, "*") {
			d.Operator = version.OpEQStar
		} else {
			d.Operator = version.OpEQ
		}
	default:
		d.Operator = version.OpNone
	}

	cpn, ver, err := splitCpnVersion(cpnVer, d.Operator)
	if err != nil {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: err.Error()}
	}
	d.Cpn = cpn
	d.Version = ver

	if d.Operator != version.OpNone && d.Version == nil {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: "operator requires a version"}
	}
	if d.Operator == version.OpEQStar && d.Version == nil {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: "=* requires a version"}
	}

	// Slot dep. A single ':' introduces one; "::" (no slot text between
	// the colons) instead introduces the repo-id marker handled below.
	if p.peek() == ':' && !strings.HasPrefix(p.rest(), "::") {
		if !e.Has(eapi.SlotDeps) {
			return nil, &ebuildkit.UnsupportedFeatureError{Feature: "slot deps", Eapi: e.Id()}
		}
		p.pos++
		slot, n, err := parseSlot(p.rest(), e)
		if err != nil {
			return nil, &ebuildkit.InvalidDepError{Value: s, Msg: err.Error()}
		}
		d.Slot = slot
		p.pos += n
	}

	// USE deps.
	if p.peek() == '[' {
		if !e.Has(eapi.UseDeps) {
			return nil, &ebuildkit.UnsupportedFeatureError{Feature: "use deps", Eapi: e.Id()}
		}
		uses, n, err := parseUseDeps(p.rest(), e)
		if err != nil {
			return nil, &ebuildkit.InvalidDepError{Value: s, Msg: err.Error()}
		}
		d.UseDeps = uses
		p.pos += n
	}

	// Repo id.
	if strings.HasPrefix(p.rest(), "::") {
		if !e.Has(eapi.RepoIds) {
			return nil, &ebuildkit.UnsupportedFeatureError{Feature: "repo ids", Eapi: e.Id()}
		}
		repoID := p.rest()[2:]
		if !repoIDRe.MatchString(repoID) {
			return nil, &ebuildkit.InvalidDepError{Value: s, Msg: "invalid repo id"}
		}
		d.Repo = repoID
		p.pos = len(p.s)
	}

	if p.pos != len(p.s) {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: "unexpected trailing text " + p.s[p.pos:]}
	}

	return d, nil
}

// splitCpnVersion splits "cat/pkg[-version]" at the last hyphen that
// begins a parseable version tail, honoring =* which requires the
// trailing "*" to already have been excluded by the version parser.
func splitCpnVersion(s string, op version.Operator) (Cpn, *version.Version, error) {
	if op == version.OpNone {
		cpn, err := ParseCpn(s)
		return cpn, nil, err
	}
	star := op == version.OpEQStar
	base := s
	if star {
		base = strings.TrimSuffix(s, "*")
	}
	idx := lastVersionBoundary(base)
	if idx < 0 {
		return Cpn{}, nil, errString("missing version after operator")
	}
	cpn, err := ParseCpn(base[:idx])
	if err != nil {
		return Cpn{}, nil, err
	}
	verStr := base[idx+1:]
	if star {
		verStr += "*"
	}
	v, err := version.ParseWithOp(opPrefix(op) + verStr)
	if err != nil {
		return Cpn{}, nil, err
	}
	return cpn, v, nil
}

// opPrefix returns the dependency-atom prefix text for op. For OpEQStar
// it returns only "=": the trailing "*" is rendered separately by each
// caller once the version text has been written, since "=*" wraps
// around the version rather than being a contiguous token.
func opPrefix(op version.Operator) string {
	switch op {
	case version.OpEQStar:
		return "="
	case version.OpLT, version.OpLE, version.OpEQ, version.OpApprox, version.OpGE, version.OpGT:
		return op.String()
	default:
		return ""
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func parseSlot(s string, e *eapi.EAPI) (*Slot, int, error) {
	end := len(s)
	for i := 0; i < len(s); i++ {
		if s[i] == '[' || strings.HasPrefix(s[i:], "::") {
			end = i
			break
		}
	}
	body := s[:end]

	if body == "=" {
		return &Slot{Op: SlotOpEqual}, end, nil
	}
	if body == "*" {
		return &Slot{Op: SlotOpStar}, end, nil
	}

	sl := &Slot{}
	if strings.HasSuffix(body, "=") {
		if !e.Has(eapi.SlotOps) {
			return nil, 0, errString("slot operators not supported by this EAPI")
		}
		sl.Op = SlotOpEqual
		body = strings.TrimSuffix(body, "=")
	}
	parts := strings.SplitN(body, "/", 2)
	sl.Slot = parts[0]
	if len(parts) == 2 {
		if !e.Has(eapi.Subslots) {
			return nil, 0, errString("subslots not supported by this EAPI")
		}
		sl.Subslot = parts[1]
	}
	if sl.Slot == "" {
		return nil, 0, errString("empty slot")
	}
	return sl, end, nil
}

func parseUseDeps(s string, e *eapi.EAPI) ([]UseDep, int, error) {
	if s[0] != '[' {
		return nil, 0, errString("expected '['")
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return nil, 0, errString("unterminated use deps")
	}
	body := s[1:end]
	if body == "" {
		return nil, 0, errString("empty use deps")
	}
	var out []UseDep
	for _, tok := range strings.Split(body, ",") {
		ud, err := parseUseDep(tok, e)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ud)
	}
	return out, end + 1, nil
}

func parseUseDep(tok string, e *eapi.EAPI) (UseDep, error) {
	ud := UseDep{}
	neg := false
	if strings.HasPrefix(tok, "!") {
		neg = true
		tok = tok[1:]
	} else if strings.HasPrefix(tok, "-") {
		ud.Kind = UseDisabled
		tok = tok[1:]
	}

	if idx := strings.IndexByte(tok, '('); idx >= 0 {
		closeIdx := strings.IndexByte(tok, ')')
		if closeIdx < 0 || closeIdx < idx {
			return ud, errString("malformed use-dep default")
		}
		switch tok[idx+1 : closeIdx] {
		case "+":
			ud.Default = DefaultEnabled
		case "-":
			ud.Default = DefaultDisabled
		default:
			return ud, errString("invalid use-dep default")
		}
		if !e.Has(eapi.UseDepDefaults) {
			return ud, errString("use-dep defaults not supported by this EAPI")
		}
		tok = tok[:idx] + tok[closeIdx+1:]
	}

	switch {
	case strings.HasSuffix(tok, "="):
		tok = strings.TrimSuffix(tok, "=")
		if neg {
			ud.Kind = UseConditionalDisabled
		} else {
			ud.Kind = UseConditionalEnabled
		}
	case strings.HasSuffix(tok, "?"):
		tok = strings.TrimSuffix(tok, "?")
		if neg {
			ud.Kind = UseConditionalNegated
		} else {
			ud.Kind = UseConditionalOrEqual
		}
	default:
		if neg {
			return ud, errString("bare '!flag' use-dep is not a valid form")
		}
	}

	if tok == "" {
		return ud, errString("empty use flag name")
	}
	ud.Flag = tok
	return ud, nil
}

// String renders the atom in canonical form.
func (d *Dep) String() string {
	var b strings.Builder
	b.WriteString(d.Blocker.String())
	b.WriteString(opPrefix(d.Operator))
	b.WriteString(d.Cpn.String())
	if d.Version != nil {
		b.WriteByte('-')
		b.WriteString(d.Version.Base())
		// Re-derive suffix/revision text via the version's own String,
		// stripping any operator prefix it would otherwise re-add.
		full := d.Version.String()
		if idx := strings.Index(full, d.Version.Base()); idx >= 0 {
			b.WriteString(full[idx+len(d.Version.Base()):])
		}
	}
	if d.Slot != nil {
		b.WriteString(d.Slot.String())
	}
	if len(d.UseDeps) > 0 {
		b.WriteByte('[')
		for i, u := range d.UseDeps {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(u.String())
		}
		b.WriteByte(']')
	}
	if d.Repo != "" {
		b.WriteString("::")
		b.WriteString(d.Repo)
	}
	return b.String()
}
