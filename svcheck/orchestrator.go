package svcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"vawter.tech/stopper"
)

// JobState represents the lifecycle state of a restart job
type JobState int

const (
	// JobRunning means the restart has been launched and not yet observed complete
	JobRunning JobState = iota
	// JobSucceeded means the restart command exited successfully
	JobSucceeded
	// JobFailed means the restart command exited with an error
	JobFailed
)

// String returns the string representation of a JobState
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RestartJob tracks one in-flight restart operation
type RestartJob struct {
	// ID uniquely identifies the job within one orchestrator run
	ID int
	// Unit is the service unit being restarted
	Unit string
	// State is the job's current lifecycle state
	State JobState
	// Err holds the restart command's error, if it failed
	Err error
}

// completion is the signal delivered when a launched restart finishes
type completion struct {
	id  int
	err error
}

// Restarter is the collaborator the orchestrator drives: something that can
// restart a named unit and fetch its status. ClientSystemd implements it.
type Restarter interface {
	Restart(ctx context.Context, unit string) error
	Status(ctx context.Context, unit string) (string, error)
}

// Orchestrator restarts a list of units and reports per-unit status as each
// restart completes. In concurrent mode (the default) all restarts are
// launched up front and reports follow completion order, so fast units are
// reported without waiting for slow ones. In serialized mode units are
// processed strictly one after another.
//
// Restarts are fire-once: a launched restart is never reissued, and an
// individual restart failing does not stop the run. The only fatal
// condition is a completion signal that matches no tracked job, which
// aborts the loop with a ProgressError.
type Orchestrator struct {
	client Restarter
	cfg    Config
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithOutput sets the writers for status reports and diagnostics
func WithOutput(out, errOut io.Writer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.out = out
		o.errOut = errOut
	}
}

// WithOrchestratorLogger sets the logger used for per-job diagnostics
func WithOrchestratorLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator for the given restarter and
// resolved configuration
func NewOrchestrator(client Restarter, cfg Config, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client: client,
		cfg:    cfg,
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run restarts the given units according to the configuration. The unit
// list must already be deduplicated; an empty list is a no-op.
func (o *Orchestrator) Run(ctx context.Context, units []string) error {
	if len(units) == 0 {
		return nil
	}
	if o.cfg.Serialize {
		return o.runSerialized(ctx, units)
	}
	return o.runConcurrent(ctx, units)
}

// runSerialized restarts units strictly one after another, reporting each
// unit's status before the next restart is launched
func (o *Orchestrator) runSerialized(ctx context.Context, units []string) error {
	for _, unit := range units {
		if err := o.client.Restart(ctx, unit); err != nil {
			// Recoverable: the failure shows up in the status output
			o.logger.Warn("restart failed", zap.String("unit", unit), zap.Error(err))
			fmt.Fprintf(o.errOut, "error: restarting %s: %v\n", unit, err)
		}
		if o.cfg.ShowStatus {
			o.report(ctx, unit)
		}
	}
	return nil
}

// runConcurrent launches every restart up front, then reports each unit as
// its restart completes
func (o *Orchestrator) runConcurrent(ctx context.Context, units []string) error {
	jobs := make(map[int]*RestartJob, len(units))

	// Buffered so a finishing restart never blocks on delivery, even after
	// a progress-failure abandons the loop
	done := make(chan completion, len(units))

	sctx := stopper.WithContext(ctx)
	for i, unit := range units {
		job := &RestartJob{ID: i + 1, Unit: unit, State: JobRunning}
		jobs[job.ID] = job

		id := job.ID
		u := unit
		sctx.Go(func(*stopper.Context) error {
			done <- completion{id: id, err: o.client.Restart(ctx, u)}
			return nil
		})
	}

	err := o.reportLoop(ctx, jobs, done)
	if err == nil {
		// All jobs observed; the launch goroutines have all delivered
		_ = sctx.Wait()
	}
	return err
}

// reportLoop consumes completions until every tracked job has been observed
// and reported. A completion that matches no tracked job is fatal: it means
// the wait mechanism is unreliable and the loop aborts with a ProgressError
// rather than guessing, leaving still-running restarts unobserved.
func (o *Orchestrator) reportLoop(ctx context.Context, jobs map[int]*RestartJob, done <-chan completion) error {
	for len(jobs) > 0 {
		// The only suspension point: wait for at least one completion
		batch := []completion{<-done}

		// Pick up anything else that finished in the meantime
	drain:
		for {
			select {
			case c := <-done:
				batch = append(batch, c)
			default:
				break drain
			}
		}

		for _, c := range batch {
			job, ok := jobs[c.id]
			if !ok {
				perr := &ProgressError{
					Tracked:  trackedUnits(jobs),
					Observed: batchIDs(batch),
				}
				fmt.Fprintf(o.errOut, "fatal: %v\n", perr)
				return perr
			}

			if c.err != nil {
				job.State = JobFailed
				job.Err = c.err
				o.logger.Warn("restart failed", zap.String("unit", job.Unit), zap.Error(c.err))
				fmt.Fprintf(o.errOut, "error: restarting %s: %v\n", job.Unit, c.err)
			} else {
				job.State = JobSucceeded
			}

			if o.cfg.ShowStatus {
				o.report(ctx, job.Unit)
			}
			delete(jobs, c.id)
		}
	}
	return nil
}

// report prints the unit's current status, unmodified. A failing status
// query is recoverable and only produces a diagnostic line.
func (o *Orchestrator) report(ctx context.Context, unit string) {
	out, err := o.client.Status(ctx, unit)
	if err != nil {
		o.logger.Warn("status query failed", zap.String("unit", unit), zap.Error(err))
		fmt.Fprintf(o.errOut, "error: status of %s: %v\n", unit, err)
		return
	}
	fmt.Fprint(o.out, out)
}

// trackedUnits returns the units of all still-tracked jobs, sorted by job ID
func trackedUnits(jobs map[int]*RestartJob) []string {
	ids := make([]int, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	units := make([]string, len(ids))
	for i, id := range ids {
		units[i] = fmt.Sprintf("%d:%s", id, jobs[id].Unit)
	}
	return units
}

// batchIDs returns the job IDs observed in a completion batch
func batchIDs(batch []completion) []int {
	ids := make([]int, len(batch))
	for i, c := range batch {
		ids[i] = c.id
	}
	return ids
}
