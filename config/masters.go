package config

import (
	"fmt"
	"sort"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/repo"
)

// Finalize resolves every filesystem-backed repo's declared masters
// into live *repo.Ebuild handles and wires them via SetMasters, after
// topologically sorting the masters DAG and rejecting cycles — spec.md
// §9's "Repo DAG finalization" design note: "build an explicit
// topological sort at Config::finalize ... detect cycles and emit a
// Config error".
//
// Finalize is idempotent: calling it again after AddRepo/RemoveRepo
// simply re-resolves from the current registry.
func (c *Config) Finalize() error {
	order, err := c.topoSortEbuilds()
	if err != nil {
		return err
	}

	for _, id := range order {
		e := c.ebuilds[id]
		masterIds := c.mastersOf[id]
		if len(masterIds) == 0 {
			e.SetMasters(nil)
			continue
		}
		masters := make([]*repo.Ebuild, 0, len(masterIds))
		for _, mid := range masterIds {
			m, ok := c.ebuilds[mid]
			if !ok {
				return &ebuildkit.RepoInitError{Id: id, Msg: fmt.Sprintf("declared master %q is not a registered ebuild repo", mid)}
			}
			masters = append(masters, m)
		}
		e.SetMasters(masters)
	}

	c.finalized = true
	return nil
}

// topoSortEbuilds returns ebuild repo ids in an order where every
// repo's masters precede it, using recursive DFS with a three-color
// mark so a cycle is detected rather than looping forever.
func (c *Config) topoSortEbuilds() ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(c.ebuilds))

	ids := make([]string, 0, len(c.ebuilds))
	for id := range c.ebuilds {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic visit order

	var order []string
	var visit func(id string, stack []string) error
	visit = func(id string, stack []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &ebuildkit.ConfigError{Msg: fmt.Sprintf("masters cycle detected: %v -> %s", append(stack, id), id)}
		}
		color[id] = gray
		for _, mid := range c.mastersOf[id] {
			if _, ok := c.ebuilds[mid]; !ok {
				return &ebuildkit.RepoInitError{Id: id, Msg: fmt.Sprintf("declared master %q is not a registered ebuild repo", mid)}
			}
			if err := visit(mid, append(stack, id)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
