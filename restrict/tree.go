package restrict

import "ebuildkit.dev/ebuildkit/dep"

// Kind identifies which of the closed set of tree node shapes a
// Restriction is: a boolean combinator or one of the typed leaf
// predicates. Like depset.NodeKind, this is a closed sum type: the
// combinator semantics are fixed and no external package should add a
// new Kind.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindXor
	KindNot
	KindTrue
	KindFalse
	KindDep
	KindEbuild
)

// Restriction is a single node of the restriction tree. Children is
// populated for And/Or/Xor/Not (Not requires exactly one); Dep is
// populated for KindDep; Ebuild is populated for KindEbuild.
type Restriction struct {
	Kind     Kind
	Children []*Restriction
	Dep      *DepRestrict
	Ebuild   *EbuildRestrict
}

// And builds a restriction satisfied when every child matches. An empty
// And (no children) is vacuously true, matching the usual convention
// for a conjunction over an empty set of constraints.
func And(children ...*Restriction) *Restriction {
	return &Restriction{Kind: KindAnd, Children: children}
}

// Or builds a restriction satisfied when at least one child matches. An
// empty Or is vacuously false.
func Or(children ...*Restriction) *Restriction {
	return &Restriction{Kind: KindOr, Children: children}
}

// Xor builds a restriction satisfied when an odd number of children
// match. An empty Xor is vacuously false (parity of zero is even).
func Xor(children ...*Restriction) *Restriction {
	return &Restriction{Kind: KindXor, Children: children}
}

// Not builds a restriction satisfied when child does not match.
func Not(child *Restriction) *Restriction {
	return &Restriction{Kind: KindNot, Children: []*Restriction{child}}
}

// True is a restriction that always matches.
func True() *Restriction { return &Restriction{Kind: KindTrue} }

// False is a restriction that never matches.
func False() *Restriction { return &Restriction{Kind: KindFalse} }

// DepLeaf wraps a DepRestrict as a restriction tree leaf.
func DepLeaf(r *DepRestrict) *Restriction {
	return &Restriction{Kind: KindDep, Dep: r}
}

// EbuildLeaf wraps an EbuildRestrict as a restriction tree leaf.
func EbuildLeaf(r *EbuildRestrict) *Restriction {
	return &Restriction{Kind: KindEbuild, Ebuild: r}
}

// MatchesDep evaluates the restriction tree against a single dependency
// atom. KindDep leaves dispatch to DepRestrict.Matches; KindEbuild
// leaves never match here. Packages are evaluated by the separate
// repo.MatchesPackage dispatcher, which has the same single-switch shape.
func (r *Restriction) MatchesDep(d *dep.Dep) bool {
	if r == nil {
		return true
	}
	switch r.Kind {
	case KindTrue:
		return true
	case KindFalse:
		return false
	case KindNot:
		return !r.Children[0].MatchesDep(d)
	case KindAnd:
		for _, c := range r.Children {
			if !c.MatchesDep(d) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range r.Children {
			if c.MatchesDep(d) {
				return true
			}
		}
		return false
	case KindXor:
		count := 0
		for _, c := range r.Children {
			if c.MatchesDep(d) {
				count++
			}
		}
		return count%2 == 1
	case KindDep:
		return r.Dep.Matches(d)
	default:
		return false
	}
}
