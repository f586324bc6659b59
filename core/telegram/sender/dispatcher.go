// Package sender runs outbound Bot API calls on a fixed set of workers.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned for jobs submitted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when a lane stays full for the whole
	// submit wait.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the dispatcher.
type Options struct {
	// QueueSize is split evenly across the workers.
	QueueSize int
	Workers   int
	// MaxRetries is the number of extra attempts for transient failures.
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
	// SubmitWait is how long Submit blocks on a full lane.
	SubmitWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	if o.SubmitWait <= 0 {
		o.SubmitWait = 2 * time.Second
	}
	return o
}

// Job is one outbound call. Jobs with the same Key, normally the chat id,
// run in submission order.
type Job struct {
	Key      int64
	Action   string
	Endpoint string
	Run      func() error

	ctx  context.Context
	done chan error
}

// Stats counts finished jobs.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Retried uint64
}

// Dispatcher hashes jobs onto per-worker lanes so one chat's messages never
// overtake each other while different chats proceed in parallel.
type Dispatcher struct {
	opts  Options
	lanes []chan Job

	gate   sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent, failed, retried atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	depth := max(opts.QueueSize/opts.Workers, 1)
	d := &Dispatcher{opts: opts, lanes: make([]chan Job, opts.Workers)}
	for i := range d.lanes {
		d.lanes[i] = make(chan Job, depth)
		d.wg.Add(1)
		go d.work(d.lanes[i])
	}
	return d
}

// Submit queues j and returns once a worker lane accepted it. It waits up to
// SubmitWait for room and never runs the job on the caller's goroutine.
func (d *Dispatcher) Submit(ctx context.Context, j Job) error {
	if j.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j.ctx = ctx

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	lane := d.lanes[d.laneFor(j.Key)]
	select {
	case lane <- j:
		return nil
	default:
	}
	wait := time.NewTimer(d.opts.SubmitWait)
	defer wait.Stop()
	select {
	case lane <- j:
		return nil
	case <-wait.C:
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues j behind earlier jobs for the same key and waits for its final
// outcome, retries included.
func (d *Dispatcher) Do(ctx context.Context, j Job) error {
	j.done = make(chan error, 1)
	if err := d.Submit(ctx, j); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the job counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.failed.Load(), Retried: d.retried.Load()}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.gate.Lock()
	if d.closed {
		d.gate.Unlock()
		return
	}
	d.closed = true
	for _, lane := range d.lanes {
		close(lane)
	}
	d.gate.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) laneFor(key int64) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(len(d.lanes)))
}

func (d *Dispatcher) work(lane <-chan Job) {
	defer d.wg.Done()
	for j := range lane {
		err := d.execute(j)
		if err != nil {
			d.failed.Add(1)
		} else {
			d.sent.Add(1)
		}
		if j.done != nil {
			j.done <- err
		}
	}
}

// execute runs j until it succeeds, fails permanently, exhausts its retries
// or runs out of time.
func (d *Dispatcher) execute(j Job) (err error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telegram sender: %s panicked: %v", j.Action, r)
			logger.Error(j.ctx, component, "send.panic", append(jobAttrs(j), slog.Any("err", r))...)
		}
	}()

	attempt := 1
	for ; ; attempt++ {
		err = j.Run()
		if err == nil {
			if attempt > 1 {
				logger.Info(j.ctx, component, "send.recovered",
					append(jobAttrs(j), slog.Int("attempts", attempt), slog.Duration("duration", logger.Took(start)))...)
			}
			return nil
		}

		verdict := netutil.Classify(err)
		if !verdict.Retry || attempt > d.opts.MaxRetries {
			break
		}
		delay := verdict.Wait
		if delay == 0 {
			delay = netutil.Backoff(d.opts.RetryBackoff, attempt, 0)
		}
		d.retried.Add(1)
		logger.Debug(j.ctx, component, "send.retry",
			append(jobAttrs(j), slog.Int("attempts", attempt), slog.Duration("backoff", delay))...)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			err = errors.Join(err, ctx.Err())
			logFailure(j, err, attempt, start)
			return err
		case <-t.C:
		}
	}
	logFailure(j, err, attempt, start)
	return err
}

func jobAttrs(j Job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.Action)}
	if j.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.Endpoint))
	}
	return attrs
}

func logFailure(j Job, err error, attempts int, start time.Time) {
	attrs := append(jobAttrs(j),
		slog.String("err", redact(err)),
		slog.String("err_kind", kindOf(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", attempts))
	}
	logger.Error(j.ctx, component, "send.fail", attrs...)
}
