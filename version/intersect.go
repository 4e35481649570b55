package version

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// interval describes the set of concrete (operator-free) versions matched
// by a single ranged operator, as a half-open-or-closed span in the PMS
// total order. A nil bound is unbounded in that direction.
type interval struct {
	lo      *Version
	loOpen  bool // true: lo itself is excluded
	hi      *Version
	hiOpen  bool // true: hi itself is excluded
}

// rangeOf converts v's operator into the interval of versions it matches.
// v must carry an operator (not OpNone); bare versions are handled
// separately as a singleton match.
func rangeOf(v *Version) interval {
	switch v.op {
	case OpEQ:
		return interval{lo: v, hi: v}
	case OpLT:
		return interval{hi: v, hiOpen: true}
	case OpLE:
		return interval{hi: v}
	case OpGT:
		return interval{lo: v, loOpen: true}
	case OpGE:
		return interval{lo: v}
	case OpApprox:
		lo := v.withRevision(0)
		hi := v.withRevision(math.MaxUint64)
		return interval{lo: lo, hi: hi}
	case OpEQStar:
		return starInterval(v)
	default:
		return interval{lo: v, hi: v}
	}
}

// starInterval computes the [lo, hi) span matched by "=prefix*": the
// lowest matching version is the prefix parsed as a version on its own;
// the exclusive upper bound increments the last numeric component of the
// prefix by one, dropping everything after it.
func starInterval(v *Version) interval {
	prefix := v.Base()
	lo, err := Parse(prefix)
	if err != nil {
		// Base always reparses cleanly; this should not happen.
		return interval{lo: v, hi: v}
	}
	hi := incrementLastComponent(lo)
	return interval{lo: lo, hi: hi, hiOpen: true}
}

// incrementLastComponent returns a version equal to v's leading numeric
// components with the final one incremented by one, e.g. "1.2" -> "1.3".
func incrementLastComponent(v *Version) *Version {
	var b strings.Builder
	for i, n := range v.nums {
		if i > 0 {
			b.WriteByte('.')
		}
		if i == len(v.nums)-1 {
			fmt.Fprintf(&b, "%d", n.val+1)
		} else {
			b.WriteString(n.raw)
		}
	}
	out, err := Parse(b.String())
	if err != nil {
		return v
	}
	return out
}

// contains reports whether r contains c, a concrete (operator-free)
// version.
func (r interval) contains(c *Version) bool {
	if r.lo != nil {
		cmp := c.Compare(r.lo)
		if cmp < 0 || (cmp == 0 && r.loOpen) {
			return false
		}
	}
	if r.hi != nil {
		cmp := c.Compare(r.hi)
		if cmp > 0 || (cmp == 0 && r.hiOpen) {
			return false
		}
	}
	return true
}

// overlaps reports whether intervals a and b share any version.
func (a interval) overlaps(b interval) bool {
	// Compare lower bound of a against upper bound of b, and vice versa.
	if !boundsAllow(a.lo, a.loOpen, b.hi, b.hiOpen) {
		return false
	}
	if !boundsAllow(b.lo, b.loOpen, a.hi, a.hiOpen) {
		return false
	}
	return true
}

// boundsAllow reports whether a lower bound (lo, loOpen) can be <= an
// upper bound (hi, hiOpen). Either side may be unbounded (nil).
func boundsAllow(lo *Version, loOpen bool, hi *Version, hiOpen bool) bool {
	if lo == nil || hi == nil {
		return true
	}
	cmp := lo.Compare(hi)
	if cmp < 0 {
		return true
	}
	if cmp == 0 {
		return !loOpen && !hiOpen
	}
	return false
}

// Intersects reports whether there exists a concrete version matched by
// both v's operator and o's operator. A version with OpNone denotes
// exactly itself. Intersects is symmetric.
func (v *Version) Intersects(o *Version) bool {
	if v.op == OpNone && o.op == OpNone {
		return v.Equal(o)
	}
	if v.op == OpNone {
		return rangeOf(o).contains(v)
	}
	if o.op == OpNone {
		return rangeOf(v).contains(o)
	}
	return rangeOf(v).overlaps(rangeOf(o))
}

// withRevision returns a copy of v with its revision replaced.
func (v *Version) withRevision(r uint64) *Version {
	c := *v
	c.hasRev = true
	c.revision = r
	return &c
}

// Cut implements the ver_cut shell-builtin semantics: it returns the
// dot-separated numeric components of v named by the range spec
// ("<start>-<end>", "<n>", or "<n>-"), 1-indexed, inclusive.
func Cut(v *Version, rng string) ([]string, error) {
	start, end, err := parseRange(rng, len(v.nums))
	if err != nil {
		return nil, err
	}
	var out []string
	for i := start; i <= end && i <= len(v.nums); i++ {
		if i < 1 {
			continue
		}
		out = append(out, v.nums[i-1].raw)
	}
	return out, nil
}

func parseRange(rng string, n int) (start, end int, err error) {
	parts := strings.SplitN(rng, "-", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	if len(parts) == 1 {
		return start, start, nil
	}
	if parts[1] == "" {
		return start, n, nil
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	return start, end, nil
}

// Test implements the ver_test shell-builtin semantics: it reports
// whether v op other holds. OpEQStar and OpApprox are not valid
// comparison operators for ver_test and always report false.
func Test(v *Version, op Operator, other *Version) bool {
	c := v.Compare(other)
	switch op {
	case OpLT:
		return c < 0
	case OpLE:
		return c <= 0
	case OpEQ:
		return c == 0
	case OpGE:
		return c >= 0
	case OpGT:
		return c > 0
	default:
		return false
	}
}
