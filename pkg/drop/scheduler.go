package drop

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// admissionQueueFactor sizes the bounded admission queue relative to the
// worker pool. Submission blocks once the queue is full, keeping memory
// proportional to the parallelism limit rather than the item count.
const admissionQueueFactor = 2

type transferJob struct {
	item   ArtifactItem
	target string
}

// scheduleTransfers drives every job through the transfer function with at
// most parallelism transfers in flight. A single item's terminal failure
// does not cancel its siblings: all admitted work is drained and the
// terminal failures are raised as one aggregate error afterwards.
// Cancellation stops admission and is reported distinctly via ctx.Err().
func scheduleTransfers(ctx context.Context, jobs []transferJob, parallelism int, transfer func(context.Context, transferJob) TransferOutcome) ([]TransferOutcome, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	queue := make(chan transferJob, parallelism*admissionQueueFactor)
	results := make(chan TransferOutcome)

	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if err := ctx.Err(); err != nil {
					// Already admitted but not started; abandon it.
					results <- TransferOutcome{Path: job.item.Path, Target: job.target, Err: err}
					continue
				}
				results <- transfer(ctx, job)
			}
		}()
	}

	// Producer blocks on a full queue and stops admitting on cancellation.
	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Single collector owns the outcome list, so no shared mutable state
	// exists across workers.
	var outcomes []TransferOutcome
	done := make(chan struct{})
	go func() {
		defer close(done)
		for outcome := range results {
			outcomes = append(outcomes, outcome)
		}
	}()

	wg.Wait()
	close(results)
	<-done

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	agg := &multierror.Error{ErrorFormat: transferFailureFormat}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			agg = multierror.Append(agg, &TransferFailure{Path: outcome.Path, Cause: outcome.Err})
		}
	}

	return outcomes, agg.ErrorOrNil()
}
