package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

// BatchRun tracks one invocation. Only the coordinating goroutine of Scheduler.Run mutates it.
type BatchRun struct {
	ID        uuid.UUID
	Total     int
	Completed int
	Active    int
	StartedAt time.Time
}

// ProgressFunc is called by the coordinator after every settled file.
type ProgressFunc func(completed, active, total int)

type Scheduler struct {
	runner     Runner
	options    *tiler.TilerOptions
	limit      int
	jobTimeout time.Duration
	progress   ProgressFunc
}

func NewScheduler(runner Runner, options *tiler.TilerOptions) *Scheduler {
	return &Scheduler{
		runner:     runner,
		options:    options,
		limit:      options.EffectiveConcurrency(),
		jobTimeout: options.JobTimeout,
	}
}

func (s *Scheduler) OnProgress(progress ProgressFunc) {
	s.progress = progress
}

type completion struct {
	unit   *io.WorkUnit
	result io.JobResult
}

// Run processes every file and returns once each of them has a result. At most limit jobs
// are in flight, a finished job immediately frees its slot for the next file.
//
// Cancelling ctx stops dispatching, in flight jobs are interrupted and files that were
// never dispatched are reported as cancelled.
func (s *Scheduler) Run(ctx context.Context, files []string) *Summary {
	run := &BatchRun{
		ID:        uuid.New(),
		Total:     len(files),
		StartedAt: time.Now(),
	}
	glog.Infof("run %s: %d files, %d workers", run.ID, run.Total, s.limit)

	results := make([]io.JobResult, len(files))
	settled := make([]bool, len(files))
	finish := func(index int, result io.JobResult) {
		run.Completed++
		results[index] = result
		settled[index] = true
		s.logResult(result)
		if s.progress != nil {
			s.progress(run.Completed, run.Active, run.Total)
		}
	}

	// two jobs never write the same path, colliding files fail without being dispatched
	collisions := io.OutputCollisions(files, s.options)
	if len(collisions) > 0 {
		glog.Warningf("run %s: %d files would overwrite another tile", run.ID, len(collisions))
	}

	producerCtx, stopProducer := context.WithCancel(ctx)
	defer stopProducer()

	work := make(chan *io.WorkUnit)
	go io.NewStandardProducer(files, s.options).Produce(producerCtx, work)

	done := make(chan completion)
	cancelled := ctx.Done()

	for {
		// only receive new work while a slot is free
		var incoming <-chan *io.WorkUnit
		if run.Active < s.limit && work != nil {
			incoming = work
		}
		if incoming == nil && run.Active == 0 {
			break
		}

		select {
		case unit, ok := <-incoming:
			if !ok {
				work = nil
				continue
			}
			if ctx.Err() != nil {
				work = nil
				continue
			}
			if other, ok := collisions[unit.Path]; ok {
				finish(unit.Index, io.FailedResult(unit.Path, io.ErrorWrite, io.StageWriting,
					fmt.Errorf("output %s collides with %s", unit.OutputPath(), other)))
				continue
			}
			run.Active++
			go s.execute(ctx, unit, done)

		case c := <-done:
			run.Active--
			finish(c.unit.Index, c.result)

		case <-cancelled:
			glog.Warningf("run %s interrupted, waiting for %d running jobs", run.ID, run.Active)
			cancelled = nil
			work = nil
			stopProducer()
		}
	}

	for i, file := range files {
		if !settled[i] {
			results[i] = io.FailedResult(file, io.ErrorCancelled, "", context.Canceled)
			run.Completed++
		}
	}

	return newSummary(run.ID.String(), results, time.Since(run.StartedAt))
}

func (s *Scheduler) execute(ctx context.Context, unit *io.WorkUnit, done chan<- completion) {
	jobCtx := ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	startTime := time.Now()
	result := s.runner.Run(jobCtx, unit)
	if result.ElapsedMillis == 0 {
		result.ElapsedMillis = time.Since(startTime).Milliseconds()
	}

	done <- completion{unit: unit, result: result}
}

func (s *Scheduler) logResult(result io.JobResult) {
	if result.Failed() {
		glog.Errorln(result.String())
	} else {
		glog.Infoln(result.String())
	}
}
