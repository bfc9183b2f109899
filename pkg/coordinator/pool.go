package coordinator

import (
	"context"
	"sync"

	"github.com/arthur-debert/morphd/pkg/ingest"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// Run consumes accepted triggers with a fixed pool of workers until the
// channel closes or the context is cancelled. In-flight jobs run to
// completion; Run returns once every worker has drained.
func (c *Coordinator) Run(ctx context.Context, events <-chan ingest.Event, workers int) {
	logger := logging.GetLogger("coordinator")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					c.Process(ctx, ev.Path, ev.Desc)
				}
			}
		}(i)
	}
	wg.Wait()
	logger.Debug().Int("workers", workers).Msg("worker pool drained")
}
