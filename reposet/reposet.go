// Package reposet implements RepoSet: an ordered set of repos combined
// with the usual set algebra, grounded on
// deps.dev/util/semver/set.go's Union/Intersect/diff over sorted spans
// generalized from version-spans to priority-sorted repos (spec.md
// §4.9).
package reposet

import (
	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/repo"
	"ebuildkit.dev/ebuildkit/restrict"
)

// RepoSet is an ordered, deduplicated collection of repos, sorted by
// repo.Less (priority descending, then id ascending). Equality ignores
// in-set order among priority ties, since order always derives from
// the sort rather than insertion sequence.
type RepoSet struct {
	repos []repo.Repository
}

// New builds a RepoSet from repos, deduplicating by Id and sorting per
// repo.Less.
func New(repos ...repo.Repository) RepoSet {
	s := RepoSet{}
	for _, r := range repos {
		s.add(r)
	}
	s.sort()
	return s
}

// Singleton wraps a single repo as a one-element RepoSet, the
// right-hand-side shorthand spec.md §4.9 allows for &Repo operands.
func Singleton(r repo.Repository) RepoSet { return New(r) }

func (s *RepoSet) add(r repo.Repository) {
	for _, existing := range s.repos {
		if existing.Id() == r.Id() {
			return
		}
	}
	s.repos = append(s.repos, r)
}

func (s *RepoSet) sort() { repo.SortRepos(s.repos) }

// Len reports the number of member repos.
func (s RepoSet) Len() int { return len(s.repos) }

// IsEmpty reports whether s has no member repos.
func (s RepoSet) IsEmpty() bool { return len(s.repos) == 0 }

// Repos returns the member repos in sorted order.
func (s RepoSet) Repos() []repo.Repository {
	return append([]repo.Repository(nil), s.repos...)
}

func (s RepoSet) has(id string) bool {
	for _, r := range s.repos {
		if r.Id() == id {
			return true
		}
	}
	return false
}

// Union returns the set union of s and t, re-sorted per spec.md §4.9.
func (s RepoSet) Union(t RepoSet) RepoSet {
	out := New(s.repos...)
	for _, r := range t.repos {
		out.add(r)
	}
	out.sort()
	return out
}

// Intersect keeps only repos present (by Id) in both s and t.
func (s RepoSet) Intersect(t RepoSet) RepoSet {
	var kept []repo.Repository
	for _, r := range s.repos {
		if t.has(r.Id()) {
			kept = append(kept, r)
		}
	}
	out := New(kept...)
	return out
}

// Xor returns the symmetric difference of s and t: repos present in
// exactly one of the two sets.
func (s RepoSet) Xor(t RepoSet) RepoSet {
	var kept []repo.Repository
	for _, r := range s.repos {
		if !t.has(r.Id()) {
			kept = append(kept, r)
		}
	}
	for _, r := range t.repos {
		if !s.has(r.Id()) {
			kept = append(kept, r)
		}
	}
	return New(kept...)
}

// Diff returns the repos in s that are not present in t.
func (s RepoSet) Diff(t RepoSet) RepoSet {
	var kept []repo.Repository
	for _, r := range s.repos {
		if !t.has(r.Id()) {
			kept = append(kept, r)
		}
	}
	return New(kept...)
}

// Equal reports whether s and t have the same member repos, ignoring
// insertion order (set equality derives from the sorted id/priority
// ordering, not construction sequence — spec.md §4.9).
func (s RepoSet) Equal(t RepoSet) bool {
	if len(s.repos) != len(t.repos) {
		return false
	}
	for i, r := range s.repos {
		if r.Id() != t.repos[i].Id() {
			return false
		}
	}
	return true
}

// Contains reports whether any member repo contains x (a dep.Cpn,
// dep.Cpv, or *dep.Dep) — property 8 of spec.md §8: (a∪b).Contains(cpv)
// iff a.Contains(cpv) || b.Contains(cpv), which holds here because
// Contains scans every member and Union's membership is exactly the
// union of each operand's members.
func (s RepoSet) Contains(x any) bool {
	for _, r := range s.repos {
		if r.Contains(x) {
			return true
		}
	}
	return false
}

// Iter chains each member repo's Iter in set order, per spec.md §5's
// "RepoSet iteration yields per-repo blocks in repo order".
func (s RepoSet) Iter() []*repo.Package {
	var out []*repo.Package
	for _, r := range s.repos {
		out = append(out, r.Iter()...)
	}
	return out
}

// IterCpv chains each member repo's IterCpv in set order.
func (s RepoSet) IterCpv() []dep.Cpv {
	var out []dep.Cpv
	for _, r := range s.repos {
		out = append(out, r.IterCpv()...)
	}
	return out
}

// IterRestrict chains each member repo's restricted iterator in set
// order, preserving per-repo order within each block.
func (s RepoSet) IterRestrict(r *restrict.Restriction) []*repo.Package {
	var out []*repo.Package
	for _, rp := range s.repos {
		out = append(out, rp.IterRestrict(r)...)
	}
	return out
}
