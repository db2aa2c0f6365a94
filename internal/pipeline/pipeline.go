// Package pipeline routes validated records to every configured sink and owns
// the sink lifecycle for one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/metrics"
	"github.com/JakeFAU/catalog-scraper/internal/sink"
	"github.com/JakeFAU/catalog-scraper/internal/validate"
)

// State is the coordinator lifecycle position.
type State int

// Lifecycle states. Transitions only move forward.
const (
	StateIdle State = iota
	StateOpen
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrMisuse marks caller bugs, as opposed to data or I/O failures.
var ErrMisuse = errors.New("pipeline misuse")

// Misuse errors. All wrap ErrMisuse.
var (
	ErrAlreadyOpen = fmt.Errorf("%w: coordinator already opened", ErrMisuse)
	ErrNotOpen     = fmt.Errorf("%w: coordinator not open", ErrMisuse)
	ErrClosed      = fmt.Errorf("%w: coordinator closed", ErrMisuse)
)

// SinkError is one failed write of one record to one sink.
type SinkError struct {
	Sink string
	Seq  int
	Kind catalog.Kind
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: record %d (%s): %v", e.Sink, e.Seq, e.Kind, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// WriteResult reports how one record fared on each sink.
type WriteResult struct {
	Seq     int
	Written []string
	Failed  []*SinkError
}

// OK reports whether every sink persisted the record.
func (r WriteResult) OK() bool {
	return len(r.Failed) == 0
}

// RejectionReport is a rejected record as it appears in the run summary.
type RejectionReport struct {
	Source     string               `json:"source"`
	Kind       catalog.Kind         `json:"kind"`
	Violations []validate.Violation `json:"violations"`
}

// Stats counts the outcomes seen by a coordinator.
type Stats struct {
	Accepted     int               `json:"accepted"`
	Rejected     int               `json:"rejected"`
	SinkFailed   int               `json:"sink_failed"`
	Rejections   []RejectionReport `json:"rejections"`
	SinkFailures map[string]int    `json:"sink_failures"`
}

// Coordinator fans accepted records out to its sinks. Calls are serialized,
// so records reach every sink in arrival order.
type Coordinator struct {
	sinks  []sink.Sink
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	opened   []sink.Sink
	seq      int
	stats    Stats
	failures []error
}

// New creates an idle Coordinator over sinks.
func New(logger *zap.Logger, sinks ...sink.Sink) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		sinks:  append([]sink.Sink(nil), sinks...),
		logger: logger,
		stats:  Stats{SinkFailures: make(map[string]int)},
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open opens every sink. If one fails, the sinks already opened are closed
// again and the coordinator is left Closed.
func (c *Coordinator) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOpen, StateDraining:
		return ErrAlreadyOpen
	case StateClosed:
		return ErrClosed
	}

	for _, s := range c.sinks {
		if err := s.Open(ctx); err != nil {
			openErr := fmt.Errorf("open sink %s: %w", s.Name(), err)
			c.closeOpened()
			c.state = StateClosed
			return openErr
		}
		c.opened = append(c.opened, s)
		c.logger.Debug("sink opened", zap.String("sink", s.Name()))
	}
	c.state = StateOpen
	return nil
}

// Write sends rec to every open sink. A sink failure is recorded and the
// remaining sinks are still attempted; the returned error is only set for
// misuse.
func (c *Coordinator) Write(ctx context.Context, rec catalog.Record) (WriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive(); err != nil {
		return WriteResult{}, err
	}
	if rec == nil {
		return WriteResult{}, fmt.Errorf("%w: nil record", ErrMisuse)
	}
	c.state = StateDraining
	c.seq++
	c.stats.Accepted++
	metrics.ObserveRecord(rec.Kind().String(), metrics.OutcomeAccepted)

	res := WriteResult{Seq: c.seq}
	for _, s := range c.opened {
		err := s.Write(ctx, rec)
		metrics.ObserveSinkWrite(s.Name(), err)
		if err == nil {
			res.Written = append(res.Written, s.Name())
			continue
		}
		serr := &SinkError{Sink: s.Name(), Seq: c.seq, Kind: rec.Kind(), Err: err}
		res.Failed = append(res.Failed, serr)
		c.failures = append(c.failures, serr)
		c.stats.SinkFailures[s.Name()]++
		c.logger.Warn("sink write failed",
			zap.String("sink", s.Name()),
			zap.Int("seq", c.seq),
			zap.String("kind", rec.Kind().String()),
			zap.Error(err),
		)
	}
	if !res.OK() {
		c.stats.SinkFailed++
	}
	return res, nil
}

// Reject records a validation rejection for the run summary.
func (c *Coordinator) Reject(source string, rej *validate.Rejection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireActive(); err != nil {
		return err
	}
	if rej == nil {
		return fmt.Errorf("%w: nil rejection", ErrMisuse)
	}
	c.state = StateDraining
	c.stats.Rejected++
	c.stats.Rejections = append(c.stats.Rejections, RejectionReport{
		Source:     source,
		Kind:       rej.Kind,
		Violations: append([]validate.Violation(nil), rej.Violations...),
	})
	metrics.ObserveRecord(rej.Kind.String(), metrics.OutcomeRejected)
	metrics.ObserveRejection(rej.Fields())
	c.logger.Info("record rejected",
		zap.String("source", source),
		zap.String("kind", rej.Kind.String()),
		zap.Strings("fields", rej.Fields()),
		zap.String("reason", rej.Error()),
	)
	return nil
}

// Close closes every opened sink exactly once, whatever happened before, and
// returns the sink failures accumulated during the run together with any
// close failures. Closing twice is misuse.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrClosed
	}
	closeErrs := c.closeOpened()
	c.state = StateClosed
	return errors.Join(append(append([]error(nil), c.failures...), closeErrs...)...)
}

// Stats returns a snapshot of the outcome counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.Rejections = append([]RejectionReport(nil), c.stats.Rejections...)
	out.SinkFailures = make(map[string]int, len(c.stats.SinkFailures))
	for k, v := range c.stats.SinkFailures {
		out.SinkFailures[k] = v
	}
	return out
}

func (c *Coordinator) requireActive() error {
	switch c.state {
	case StateIdle:
		return ErrNotOpen
	case StateClosed:
		return ErrClosed
	default:
		return nil
	}
}

// closeOpened must be called with mu held.
func (c *Coordinator) closeOpened() []error {
	var errs []error
	for _, s := range c.opened {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
			c.logger.Warn("sink close failed", zap.String("sink", s.Name()), zap.Error(err))
			continue
		}
		c.logger.Debug("sink closed", zap.String("sink", s.Name()))
	}
	c.opened = nil
	return errs
}
