package dep

import "ebuildkit.dev/ebuildkit/version"

// Intersects reports whether there exists a concrete package that both d
// and o could match: their Cpns must agree, their version ranges must
// overlap (absence of a version on either side matches anything), their
// slot specs must be jointly satisfiable, their USE-dep sets must not
// directly contradict, and their repo-ids must agree when both given.
func (d *Dep) Intersects(o *Dep) bool {
	if !d.Cpn.Equal(o.Cpn) {
		return false
	}
	if !versionsIntersect(d.Version, o.Version) {
		return false
	}
	if !slotsIntersect(d.Slot, o.Slot) {
		return false
	}
	if !useDepsCompatible(d.UseDeps, o.UseDeps) {
		return false
	}
	if d.Repo != "" && o.Repo != "" && d.Repo != o.Repo {
		return false
	}
	return true
}

func versionsIntersect(a, b *version.Version) bool {
	if a == nil || b == nil {
		return true
	}
	return a.Intersects(b)
}

func slotsIntersect(a, b *Slot) bool {
	if a == nil || b == nil {
		return true
	}
	if a.Op == SlotOpStar || b.Op == SlotOpStar {
		return true
	}
	if a.Slot == "" || b.Slot == "" {
		// A bare ":=" carries no slot text and matches anything.
		return true
	}
	if a.Slot != b.Slot {
		return false
	}
	if a.Subslot != "" && b.Subslot != "" && a.Subslot != b.Subslot {
		return false
	}
	return true
}

// useDepsCompatible reports whether the two USE-dep sets can be
// simultaneously satisfied by some single USE configuration: any flag
// named on both sides must not require opposite enabled/disabled
// states. Conditional forms (=, ?) do not by themselves force a state,
// so they never conflict with anything.
func useDepsCompatible(a, b []UseDep) bool {
	state := map[string]bool{}
	for _, u := range a {
		if s, ok := forcedState(u); ok {
			state[u.Flag] = s
		}
	}
	for _, u := range b {
		s, ok := forcedState(u)
		if !ok {
			continue
		}
		if prev, seen := state[u.Flag]; seen && prev != s {
			return false
		}
	}
	return true
}

// forcedState reports the definite enabled/disabled state a USE-dep
// entry requires, if any. Conditional forms don't force a state on
// their own.
func forcedState(u UseDep) (bool, bool) {
	switch u.Kind {
	case UseEnabled:
		return true, true
	case UseDisabled:
		return false, true
	default:
		return false, false
	}
}
