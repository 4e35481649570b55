package restrict

import "ebuildkit.dev/ebuildkit/depset"

// DepSetRestrict is a leaf predicate over a dependency-expression tree
// (DEPEND-family, LICENSE, etc): it tests the set of leaf strings the
// tree flattens to, reusing SetRestrict's membership/quantifier
// vocabulary rather than re-deriving one for trees.
type DepSetRestrict struct {
	Leaves *SetRestrict
}

// Matches flattens ds and evaluates r.Leaves against the resulting
// leaf-string set.
func (r *DepSetRestrict) Matches(ds *depset.DepSet) bool {
	if r == nil {
		return true
	}
	if ds == nil {
		return r.Leaves.Matches(nil)
	}
	leaves := ds.Flatten()
	strs := make([]string, len(leaves))
	for i, l := range leaves {
		strs[i] = leafString(l)
	}
	return r.Leaves.Matches(strs)
}

// leafString extracts the flattened leaf's string form without
// depending on depset's unexported leafString method.
func leafString(l depset.Leaf) string {
	switch v := l.(type) {
	case depset.PkgDep:
		return v.Dep.String()
	case depset.String:
		return v.Value
	case depset.Uri:
		if v.Rename != "" {
			return v.URL + " -> " + v.Rename
		}
		return v.URL
	default:
		return ""
	}
}

// EbuildRestrict is a leaf predicate over ebuild-only package metadata,
// the `Pkg(Ebuild(EbuildRestrict))` arm of the restriction dispatch
// table.
type EbuildRestrict struct {
	Description     *StrRestrict
	LongDescription *StrRestrict
	Homepage        *StrRestrict
	Slot            *StrRestrict
	Subslot         *StrRestrict
	Depend          *DepSetRestrict
	Rdepend         *DepSetRestrict
	Bdepend         *DepSetRestrict
	Idepend         *DepSetRestrict
	Pdepend         *DepSetRestrict
	Iuse            *SetRestrict
	Keywords        *SetRestrict
	Inherit         *SetRestrict
	Maintainers     *SetRestrict // matched against maintainer email addresses
}
