package repo

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ebuildkit.dev/ebuildkit/dep"
	"ebuildkit.dev/ebuildkit/restrict"
)

// defaultWorkers bounds the worker pool used by IterOrdered/IterUnordered
// when the caller does not specify one, grounded on the general shape of
// a bounded goroutine pool rather than an unbounded fan-out.
const defaultWorkers = 8

// IterUnordered loads every candidate matching r using a bounded pool
// of workers and returns them in completion order (an arbitrary order,
// but the same multiset Iter(r) would yield — property 6/7 of spec.md
// §8). workers <= 0 selects defaultWorkers.
func (e *Ebuild) IterUnordered(ctx context.Context, r *restrict.Restriction, workers int) ([]*Package, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	candidates := e.candidateCpvs(r)

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan dep.Cpv)
	results := make(chan *Package, len(candidates))

	g.Go(func() error {
		defer close(jobs)
		for _, cpv := range candidates {
			select {
			case jobs <- cpv:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for cpv := range jobs {
				pkg := e.loadOne(cpv)
				if MatchesPackage(r, pkg) {
					select {
					case results <- pkg:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	var out []*Package
	for pkg := range results {
		out = append(out, pkg)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// IterOrdered loads every candidate matching r on a bounded worker
// pool but releases results through a reorder buffer keyed by the
// candidate's position in the sequential scan order, so the returned
// slice is byte-for-byte the same sequence Iter's restricted-filter
// equivalent would produce regardless of worker count (property 7 of
// spec.md §8).
func (e *Ebuild) IterOrdered(ctx context.Context, r *restrict.Restriction, workers int) ([]*Package, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	candidates := e.candidateCpvs(r)

	type indexed struct {
		idx int
		pkg *Package
		ok  bool
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan indexed, len(candidates))

	g.Go(func() error {
		defer close(jobs)
		for i := range candidates {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				pkg := e.loadOne(candidates[i])
				ok := MatchesPackage(r, pkg)
				select {
				case results <- indexed{idx: i, pkg: pkg, ok: ok}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	buf := make([]indexed, len(candidates))
	seen := make([]bool, len(candidates))
	for res := range results {
		buf[res.idx] = res
		seen[res.idx] = true
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Package
	for i, ok := range seen {
		if ok && buf[i].ok {
			out = append(out, buf[i].pkg)
		}
	}
	return out, nil
}
