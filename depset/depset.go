// Package depset implements the dependency-expression tree shared by
// DEPEND/RDEPEND/BDEPEND/IDEPEND/PDEPEND, LICENSE, REQUIRED_USE,
// PROPERTIES, RESTRICT, and SRC_URI: a recursive-descent parser over a
// closed set of leaf and boolean-group node types, generalized from the
// same shape as deps.dev/util/semver's constraint-set parsing but with
// ebuild's richer group vocabulary (||, ^^, ??, flag?).
package depset

import (
	"sort"
	"strings"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/eapi"
)

// Leaf is implemented by the three closed leaf payload types: PkgDep,
// String, and Uri. It is a sum type, not an open interface: no other
// package should implement it.
type Leaf interface {
	leafString() string
	isLeaf()
}

// PkgDep wraps a package dependency atom, the leaf type for
// DEPEND/RDEPEND/BDEPEND/IDEPEND/PDEPEND.
type PkgDep struct{ Dep *dep.Dep }

func (p PkgDep) leafString() string { return p.Dep.String() }
func (PkgDep) isLeaf()              {}

// String wraps a plain token, the leaf type for LICENSE, REQUIRED_USE,
// PROPERTIES, and RESTRICT.
type String struct{ Value string }

func (s String) leafString() string { return s.Value }
func (String) isLeaf()              {}

// Uri wraps a fetch URL with an optional local rename, the leaf type
// for SRC_URI.
type Uri struct {
	URL    string
	Rename string // empty unless "url -> filename" was used
}

func (u Uri) leafString() string {
	if u.Rename != "" {
		return u.URL + " -> " + u.Rename
	}
	return u.URL
}
func (Uri) isLeaf() {}

// NodeKind identifies which of the closed set of tree node shapes a Node
// is.
type NodeKind int

const (
	KindEnabled NodeKind = iota
	KindDisabled
	KindAllOf
	KindAnyOf
	KindExactlyOneOf
	KindAtMostOneOf
	KindUseEnabled
	KindUseDisabled
)

// Node is one element of a dep-set tree. Exactly one of Leaf (for
// KindEnabled/KindDisabled) or Children (for every group kind) is
// populated, selected by Kind. UseFlag is populated only for
// KindUseEnabled/KindUseDisabled.
type Node struct {
	Kind     NodeKind
	Leaf     Leaf
	UseFlag  string
	Children []*Node
}

// DepSet is a parsed dependency-expression tree: an ordered top-level
// AllOf group.
type DepSet struct {
	Root *Node
}

// Flatten yields every leaf reachable from the root, depth-first,
// left-to-right. Each leaf appears exactly once.
func (d *DepSet) Flatten() []Leaf {
	var out []Leaf
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case KindEnabled, KindDisabled:
			out = append(out, n.Leaf)
		default:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(d.Root)
	return out
}

// Recursive yields every node including internal ones, depth-first
// pre-order (the node itself before its children).
func (d *DepSet) Recursive() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d.Root)
	return out
}

// sortKey produces a canonical sort key for an AllOf child so that
// AllOf's set-hash/equality semantics (order-independent) can be
// implemented by sorting before comparing.
func sortKey(n *Node) string {
	switch n.Kind {
	case KindEnabled:
		return "E:" + n.Leaf.leafString()
	case KindDisabled:
		return "D:" + n.Leaf.leafString()
	default:
		var b strings.Builder
		b.WriteString([]string{"", "", "A", "|", "^", "?", "u+", "u-"}[n.Kind])
		b.WriteByte('(')
		b.WriteString(n.UseFlag)
		keys := make([]string, len(n.Children))
		for i, c := range n.Children {
			keys[i] = sortKey(c)
		}
		if n.Kind == KindAllOf {
			sort.Strings(keys)
		}
		b.WriteString(strings.Join(keys, ","))
		b.WriteByte(')')
		return b.String()
	}
}

// CanonicalKey returns a key suitable for set-equality/hashing purposes:
// AllOf children are canonicalized by sorting (order-independent),
// AnyOf/ExactlyOneOf/AtMostOneOf preserve insertion order since their
// REQUIRED_USE semantics depend on it.
func (d *DepSet) CanonicalKey() string { return sortKey(d.Root) }

// LeafParser parses one leaf token of type T, given the surrounding
// EAPI for feature gating. Used to parameterize Parse over the three
// leaf types (PkgDep, String, Uri).
type LeafParser func(token string, e *eapi.EAPI) (Leaf, error)

// ParsePkgDep adapts dep.Parse to the LeafParser shape for
// DEPEND-family dep-sets.
func ParsePkgDep(token string, e *eapi.EAPI) (Leaf, error) {
	d, err := dep.Parse(token, e)
	if err != nil {
		return nil, err
	}
	return PkgDep{Dep: d}, nil
}

// ParseStringLeaf adapts a bare-token leaf (LICENSE, PROPERTIES,
// RESTRICT, REQUIRED_USE) to the LeafParser shape. The REQUIRED_USE-only
// leading "!" negation is stripped by the tree parser itself (mapped to
// KindDisabled) before the token reaches here.
func ParseStringLeaf(token string, _ *eapi.EAPI) (Leaf, error) {
	return String{Value: token}, nil
}

// ParseUri adapts the SRC_URI leaf ("url", with any "-> filename" rename
// already stripped and reattached by the tree parser) to the LeafParser
// shape.
func ParseUri(token string, _ *eapi.EAPI) (Leaf, error) {
	return Uri{URL: token}, nil
}
