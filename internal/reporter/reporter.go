package reporter

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"spirareport/internal/config"
	apierrors "spirareport/internal/errors"
	"spirareport/internal/spira"
	"spirareport/internal/telemetry"
)

// ErrNoClient is returned by SuiteDone when there is nothing to submit through.
var ErrNoClient = errors.New("no Spira client configured")

// Reporter collects spec results and records them in Spira when the suite completes.
// It is safe for concurrent use.
type Reporter struct {
	Credentials *config.Credentials
	Client      Recorder
	Logger      *slog.Logger
	// Metrics is optional.
	Metrics *telemetry.Metrics
	// MaxConcurrency caps in-flight requests during a flush; 0 means one per record.
	MaxConcurrency int
	// Now stamps specs that carry no start time.
	Now func() time.Time

	mu      sync.Mutex
	pending []PendingTestRun
	lastID  string
	hasLast bool
}

// New creates a Reporter.
func New(creds *config.Credentials, client Recorder, logger *slog.Logger) *Reporter {
	if creds == nil {
		creds = &config.Credentials{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		Credentials: creds,
		Client:      client,
		Logger:      logger,
		Now:         time.Now,
	}
}

// SpecDone queues the result of one completed spec. A result with the same ID as the
// one directly before it is a repeated notification and is dropped.
func (r *Reporter) SpecDone(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasLast && result.ID == r.lastID {
		r.log().Debug("Skipping repeated spec notification", "id", result.ID)
		if r.Metrics != nil {
			r.Metrics.DuplicatesSuppressed.Inc()
		}
		return
	}
	r.lastID = result.ID
	r.hasLast = true

	run := r.pendingRun(result)
	r.pending = append(r.pending, run)

	r.log().Debug("Queued test run", "id", result.ID, "test", run.TestName, "testCaseId", run.TestCaseID, "statusId", run.StatusID)
	if r.Metrics != nil {
		r.Metrics.SpecsReceived.WithLabelValues(statusLabel(result.Status)).Inc()
	}
}

func (r *Reporter) pendingRun(result Result) PendingTestRun {
	creds := r.credentials()

	run := PendingTestRun{
		TestCaseID: creds.TestCases.Lookup(result.Description),
		TestName:   result.Description,
		StatusID:   spira.StatusUnknown,
	}

	// Traces are joined as-is; Spira shows them verbatim.
	var stack strings.Builder
	for _, e := range result.FailedExpectations {
		stack.WriteString(e.Stack)
	}
	run.StackTrace = stack.String()

	started := result.Started
	if started.IsZero() {
		started = r.now()
	}
	run.StartDate = spira.FormatDate(started.UnixMilli())

	switch result.Status {
	case StatusPassed:
		run.StatusID = spira.StatusPassed
		run.Message = MessagePassed
	case StatusFailed:
		run.StatusID = spira.StatusFailed
		run.Message = MessageFailed
	}

	run.ReleaseID = copyInt(creds.ReleaseID)
	run.TestSetID = copyInt(creds.TestSetID)
	return run
}

// Pending returns a copy of the queued test runs.
func (r *Reporter) Pending() []PendingTestRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PendingTestRun(nil), r.pending...)
}

// SuiteDone submits every queued test run concurrently and returns once all requests
// have settled. The queue is taken over at the start, so specs completing during the
// flush wait for the next one. Failed runs are not re-queued; each is reported as a
// *FlushError in the joined error.
func (r *Reporter) SuiteDone(ctx context.Context) (Summary, error) {
	start := time.Now()

	r.mu.Lock()
	runs := r.pending
	r.pending = nil
	r.mu.Unlock()

	summary := Summary{Submitted: len(runs)}
	for _, run := range runs {
		switch run.StatusID {
		case spira.StatusPassed:
			summary.Passed++
		case spira.StatusFailed:
			summary.Failed++
		default:
			summary.Unknown++
		}
	}

	if len(runs) == 0 {
		r.log().Debug("No test runs to record")
		return summary, nil
	}

	if r.Client == nil {
		summary.Rejected = len(runs)
		r.log().Error("Dropping test runs", "count", len(runs), "error", ErrNoClient)
		if r.Metrics != nil {
			r.Metrics.RunsFailed.WithLabelValues("no_client").Add(float64(len(runs)))
		}
		return summary, ErrNoClient
	}

	r.log().Info("Recording test runs in Spira", "count", len(runs), "projectId", r.credentials().ProjectID)

	var mu sync.Mutex
	p := pool.New().WithErrors()
	if r.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(r.MaxConcurrency)
	}

	for _, run := range runs {
		p.Go(func() error {
			recorded, err := r.record(ctx, run)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Rejected++
				return &FlushError{Run: run, Err: err}
			}
			summary.Recorded++
			if recorded != nil && recorded.TestRunID != 0 {
				summary.TestRunIDs = append(summary.TestRunIDs, recorded.TestRunID)
			}
			return nil
		})
	}

	err := p.Wait()

	sort.Ints(summary.TestRunIDs)
	summary.Duration = time.Since(start)
	if r.Metrics != nil {
		r.Metrics.Flushes.Inc()
	}

	r.log().Info("Finished recording test runs",
		"submitted", summary.Submitted,
		"recorded", summary.Recorded,
		"rejected", summary.Rejected,
		"duration", summary.Duration)

	return summary, err
}

func (r *Reporter) record(ctx context.Context, run PendingTestRun) (*spira.RecordedTestRun, error) {
	start := time.Now()
	recorded, err := r.Client.RecordTestRun(ctx, r.credentials().ProjectID, run.TestRun())
	if r.Metrics != nil {
		r.Metrics.RecordDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		reason := apierrors.Reason(err)
		r.log().Error("Failed to record test run",
			"test", run.TestName,
			"testCaseId", run.TestCaseID,
			"reason", reason,
			"error", err)
		if r.Metrics != nil {
			r.Metrics.RunsFailed.WithLabelValues(reason).Inc()
		}
		return nil, err
	}

	if r.Metrics != nil {
		r.Metrics.RunsRecorded.Inc()
	}
	if recorded != nil {
		r.log().Debug("Recorded test run", "test", run.TestName, "testRunId", recorded.TestRunID)
	}
	return recorded, nil
}

func (r *Reporter) credentials() *config.Credentials {
	if r.Credentials == nil {
		return &config.Credentials{}
	}
	return r.Credentials
}

func (r *Reporter) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Reporter) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func statusLabel(status string) string {
	switch status {
	case StatusPassed, StatusFailed, StatusSkipped:
		return status
	}
	return "other"
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
