// Package worker runs a bounded pool of goroutines over a batch of
// files. It parallelizes quiet-mode matching; interactive flows stay on
// one goroutine because they own stdin.
package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
)

// Func processes one file. The context carries a logger tagged with a
// per-file ID and the path.
type Func func(ctx context.Context, path string)

// Pool runs a Func over a batch with bounded concurrency. The zero
// value runs a single worker.
type Pool struct {
	Workers int
}

// Run dispatches fn over paths with at most p.Workers concurrent calls
// and blocks until every dispatched file is done. Cancelling ctx stops
// dispatching; files already picked up run to completion.
func (p *Pool) Run(ctx context.Context, paths []string, fn Func) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	log := logger.FromContext(ctx)
	queue := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				id, err := uuid.NewRandom()
				if err != nil {
					log.Err(err).Error("new uuid error")
					continue
				}
				itemLog := log.ID(id.String()).Root(logger.Data{"path": path})
				fn(itemLog.WithContext(ctx), path)
			}
		}()
	}

dispatch:
	for _, path := range paths {
		select {
		case queue <- path:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(queue)
	wg.Wait()
}
