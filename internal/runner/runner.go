// Package runner executes cases against an injected agent invoker and
// emits immutable records.
package runner

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/piki9312/evalgate/internal/agent"
	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/observability"
	"github.com/piki9312/evalgate/internal/schema"
	"github.com/piki9312/evalgate/internal/storage"
)

// Options configures a run.
type Options struct {
	RunID       string
	Repeat      int           // attempts per case, min 1
	Concurrency int           // worker pool size, min 1
	Timeout     time.Duration // hard per-item deadline
	Store       storage.RecordStore
	Mirrors     []storage.RecordStore // best-effort archive sinks
	Invoker     agent.Invoker
	Verbose     bool
	Now         func() time.Time // injectable clock
	Stdout      io.Writer
}

// Runner dispatches work items over a bounded worker pool and funnels
// records through a single writer so the store sees one appender.
type Runner struct {
	opts   Options
	logger *log.Logger
}

// Result is the run's in-memory tally. Items whose record failed to
// persist are counted as provider_error here so nothing drops silently,
// but they are omitted from Records (the durable record stream).
type Result struct {
	RunID         string
	Attempts      int
	Passes        int
	Failures      map[domain.FailureType]int
	WriteFailures int
	TotalCost     float64
	Records       []domain.Record
}

// AllPassed reports whether at least one item ran and every executed item
// passed outright.
func (r *Result) AllPassed() bool {
	return r.Attempts > 0 && r.Passes == r.Attempts
}

// New creates a runner. Zero-value option fields get sane minimums.
func New(opts Options) *Runner {
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Runner{
		opts:   opts,
		logger: log.New(os.Stderr, "[runner] ", log.LstdFlags),
	}
}

// workItem is one scheduled case execution.
type workItem struct {
	c           domain.Case
	expectation *schema.Expectation
	attempt     int
}

// Run expands cases into |cases| x repeat work items, preserving case
// order within each repetition, and drains them through the pool.
// Cancellation is honored cooperatively between items; in-flight items
// are never interrupted mid-invocation.
func (r *Runner) Run(ctx context.Context, cs []domain.Case) (*Result, error) {
	expectations := make(map[string]*schema.Expectation, len(cs))
	for _, c := range cs {
		exp, err := schema.Parse(c.ExpectedOutput)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.CaseID, err)
		}
		expectations[c.CaseID] = exp
	}

	items := make(chan workItem)
	records := make(chan domain.Record)

	var workers sync.WaitGroup
	for i := 0; i < r.opts.Concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			r.worker(ctx, items, records)
		}()
	}

	// Single writer: serializes appends so append-only semantics hold
	// regardless of worker interleaving.
	result := &Result{
		RunID:    r.opts.RunID,
		Failures: make(map[domain.FailureType]int),
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for rec := range records {
			r.persist(ctx, rec, result)
		}
	}()

	// Feed the queue; stop between items on cancellation.
feed:
	for attempt := 0; attempt < r.opts.Repeat; attempt++ {
		for _, c := range cs {
			select {
			case <-ctx.Done():
				break feed
			case items <- workItem{c: c, expectation: expectations[c.CaseID], attempt: attempt}:
			}
		}
	}
	close(items)
	workers.Wait()
	close(records)
	<-writerDone

	r.printSummary(result)
	return result, nil
}

// worker pulls items until the queue closes, executing each under the
// per-item deadline.
func (r *Runner) worker(ctx context.Context, items <-chan workItem, records chan<- domain.Record) {
	for item := range items {
		if ctx.Err() != nil {
			// Cooperative cancellation: drain without executing.
			continue
		}

		rec, ok := r.execute(ctx, item)
		if !ok {
			continue
		}
		records <- rec
	}
}

// execute invokes the agent for one item and classifies the outcome.
// Returns ok=false when the run was cancelled mid-item; cancelled items
// leave no record.
func (r *Runner) execute(ctx context.Context, item workItem) (domain.Record, bool) {
	observability.TrackInFlight(1)
	defer observability.TrackInFlight(-1)

	// The invocation sees only its own deadline, not run cancellation.
	itemCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if r.opts.Timeout > 0 {
		itemCtx, cancel = context.WithTimeout(itemCtx, r.opts.Timeout)
	}
	start := time.Now()
	outcome := r.opts.Invoker.Invoke(itemCtx, item.c)
	cancel()
	wallMs := float64(time.Since(start).Milliseconds())

	if ctx.Err() != nil {
		return domain.Record{}, false
	}

	latency := outcome.LatencyMs
	if latency <= 0 {
		latency = wallMs
	}

	failure := classify(itemCtx, item.expectation, outcome)

	rec := domain.Record{
		RunID:        r.opts.RunID,
		CaseID:       item.c.CaseID,
		Severity:     item.c.Severity,
		Timestamp:    r.opts.Now().UTC(),
		Passed:       failure == nil,
		FailureType:  failure,
		LatencyMs:    latency,
		Cost:         outcome.Cost,
		TokensTotal:  outcome.TokensTotal,
		OutputText:   outcome.Text,
		OutputJSON:   outcome.JSON,
		AttemptIndex: item.attempt,
	}

	observability.RecordItem(latency / 1000)
	if failure != nil {
		observability.RecordFailure(string(*failure))
		r.logf("case %s attempt %d: %s", rec.CaseID, rec.AttemptIndex, *failure)
	} else {
		r.logf("case %s attempt %d: pass (%.0fms)", rec.CaseID, rec.AttemptIndex, latency)
	}
	return rec, true
}

// persist appends rec to the primary store, then mirrors. A primary
// append failure never aborts the run: it is logged, the item is dropped
// from the record stream, and the tally books it as a provider_error.
func (r *Runner) persist(ctx context.Context, rec domain.Record, result *Result) {
	result.Attempts++
	result.TotalCost += rec.Cost

	if err := r.opts.Store.Append(ctx, &rec); err != nil {
		r.logger.Printf("append record %s/%s/%d: %v", rec.RunID, rec.CaseID, rec.AttemptIndex, err)
		observability.RecordWriteError()
		result.WriteFailures++
		result.Failures[domain.FailureProviderError]++
		return
	}

	for _, mirror := range r.opts.Mirrors {
		if err := mirror.Append(ctx, &rec); err != nil {
			r.logger.Printf("mirror record %s/%s/%d: %v", rec.RunID, rec.CaseID, rec.AttemptIndex, err)
			observability.RecordWriteError()
		}
	}

	if rec.Passed {
		result.Passes++
	} else {
		result.Failures[rec.Failed()]++
	}
	result.Records = append(result.Records, rec)
}

// printSummary emits the compact per-run summary plus a one-line JSON
// registry record for CI scrapers.
func (r *Runner) printSummary(result *Result) {
	fmt.Fprintf(r.opts.Stdout, "run %s: %d/%d passed", result.RunID, result.Passes, result.Attempts)
	for _, ft := range domain.KnownFailureTypes {
		if n := result.Failures[ft]; n > 0 {
			fmt.Fprintf(r.opts.Stdout, " %s=%d", ft, n)
		}
	}
	if result.WriteFailures > 0 {
		fmt.Fprintf(r.opts.Stdout, " write_failures=%d", result.WriteFailures)
	}
	fmt.Fprintf(r.opts.Stdout, " cost=%.4f\n", result.TotalCost)
	fmt.Fprintf(r.opts.Stdout, `{"run_id":%q,"attempts":%d,"passes":%d}`+"\n",
		result.RunID, result.Attempts, result.Passes)
}

func (r *Runner) logf(format string, args ...any) {
	if r.opts.Verbose {
		r.logger.Printf(format, args...)
	}
}
