package syncer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// pageOffsets returns the offsets that cover total records in pages of size.
func pageOffsets(total, size int) []int {
	if total <= 0 || size <= 0 {
		return nil
	}
	offsets := make([]int, 0, (total+size-1)/size)
	for off := 0; off < total; off += size {
		offsets = append(offsets, off)
	}
	return offsets
}

// fetchPages runs fetch for every offset on a bounded worker pool and
// concatenates the pages in offset order. The first error cancels the rest.
func fetchPages[T any](
	ctx context.Context,
	offsets []int,
	workers int,
	fetch func(ctx context.Context, offset int) ([]T, error),
) ([]T, error) {
	if len(offsets) == 0 {
		return []T{}, nil
	}
	if workers <= 0 {
		workers = 1
	}

	pages := make([][]T, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, off := range offsets {
		g.Go(func() error {
			page, err := fetch(gctx, off)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, p := range pages {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out, nil
}
