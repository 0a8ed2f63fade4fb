// Package orchestrator runs a batch of named tasks on a bounded number of
// workers under one shared deadline, isolating individual failures.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

// Kind selects the value stored for a task that did not succeed.
type Kind int

const (
	// Collection tasks default to an empty slice (or the zero value for non-slice results).
	Collection Kind = iota
	// Analysis tasks default to the zero value, i.e. nil for pointer results.
	Analysis
)

func (k Kind) String() string {
	if k == Analysis {
		return "analysis"
	}
	return "collection"
}

// Status is the outcome of one task.
type Status int

const (
	Succeeded Status = iota
	TimedOut
	Failed
)

func (s Status) String() string {
	switch s {
	case TimedOut:
		return "timeout"
	case Failed:
		return "failed"
	default:
		return "ok"
	}
}

const (
	defaultMaxWorkers = 3
	defaultTimeout    = 120 * time.Second
)

// Task is one unit of work. Fn must only read what it captures; results are
// passed back through the return value.
type Task[T any] struct {
	Label string
	Fn    func(ctx context.Context) (T, error)
}

// Event describes one finished task.
type Event struct {
	Key    string
	Label  string
	Status Status
	Err    error
	Done   int
	Total  int
}

// Reporter receives progress for a batch. TaskDone is called from the
// goroutine running RunParallelTasks, never concurrently.
type Reporter interface {
	TaskDone(Event)
	// TimeoutHint is called once after the batch when any task timed out.
	TimeoutHint()
	Done()
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) TaskDone(Event) {}
func (NopReporter) TimeoutHint()   {}
func (NopReporter) Done()          {}

// Options configures one RunParallelTasks call.
type Options struct {
	MaxWorkers int

	// Timeout bounds the whole batch, not each task.
	Timeout  time.Duration
	Kind     Kind
	Logger   *log.Logger
	Reporter Reporter
	Metrics  *Metrics
}

func (o Options) withDefaults() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = defaultMaxWorkers
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	if o.Reporter == nil {
		o.Reporter = NopReporter{}
	}
	return o
}

// Results holds one entry per submitted key. A key present in Errors holds
// the default value for the batch kind in Values.
type Results[T any] struct {
	Values map[string]T
	Errors map[string]*apperr.Error
}

// Get returns the value for key and whether the task succeeded.
func (r *Results[T]) Get(key string) (T, bool) {
	_, failed := r.Errors[key]
	return r.Values[key], !failed
}

// TimedOut returns the sorted keys of tasks that hit the batch deadline.
func (r *Results[T]) TimedOut() []string {
	return r.keysWith(apperr.KindTimeout)
}

// Failed returns the sorted keys of tasks that returned an error or panicked.
func (r *Results[T]) Failed() []string {
	return r.keysWith(apperr.KindTaskFailed)
}

func (r *Results[T]) keysWith(kind apperr.Kind) []string {
	var keys []string
	for k, err := range r.Errors {
		if err.Kind == kind {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

type outcome[T any] struct {
	key   string
	value T
	err   error
}

// RunParallelTasks runs tasks on at most opts.MaxWorkers goroutines and waits
// for them until opts.Timeout has elapsed. Tasks still running at the deadline
// are abandoned and recorded as timed out.
//
// The returned Results always has one entry per key. The only error returned
// is a KindCanceled error when ctx is canceled or a task reports cancellation.
func RunParallelTasks[T any](ctx context.Context, tasks map[string]Task[T], opts Options) (*Results[T], error) {
	opts = opts.withDefaults()
	res := &Results[T]{
		Values: make(map[string]T, len(tasks)),
		Errors: make(map[string]*apperr.Error),
	}
	if len(tasks) == 0 {
		opts.Reporter.Done()
		return res, nil
	}

	keys := slices.Sorted(maps.Keys(tasks))
	batchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	done := make(chan outcome[T], len(keys))
	go func() {
		var g errgroup.Group
		g.SetLimit(opts.MaxWorkers)
		for _, key := range keys {
			task := tasks[key]
			g.Go(func() error {
				v, err := runOne(batchCtx, task)
				done <- outcome[T]{key: key, value: v, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	pending := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		pending[key] = struct{}{}
	}
	anyTimeout := false
	record := func(key string, status Status, err *apperr.Error) {
		delete(pending, key)
		if err != nil {
			res.Values[key] = defaultValue[T](opts.Kind)
			res.Errors[key] = err
		}
		opts.Metrics.recordTask(ctx, opts.Kind, status)
		opts.Reporter.TaskDone(Event{
			Key:    key,
			Label:  tasks[key].Label,
			Status: status,
			Err:    errOrNil(err),
			Done:   len(keys) - len(pending),
			Total:  len(keys),
		})
	}

	handle := func(o outcome[T]) error {
		label := tasks[o.key].Label
		switch {
		case o.err == nil:
			res.Values[o.key] = o.value
			opts.Logger.Printf("  ✓ %s", label)
			record(o.key, Succeeded, nil)
		case apperr.Has(o.err, apperr.KindCanceled) && errors.Is(ctx.Err(), context.Canceled):
			return apperr.New(apperr.KindCanceled, label, o.err)
		case apperr.KindOf(o.err) == apperr.KindTimeout:
			anyTimeout = true
			opts.Logger.Printf("  ⚠ %s timed out: %v", label, o.err)
			record(o.key, TimedOut, apperr.New(apperr.KindTimeout, label, o.err))
		default:
			opts.Logger.Printf("  ✗ %s failed: %v", label, o.err)
			record(o.key, Failed, apperr.New(apperr.KindTaskFailed, label, o.err))
		}
		return nil
	}

	for len(pending) > 0 {
		select {
		case o := <-done:
			if err := handle(o); err != nil {
				return nil, err
			}
		case <-batchCtx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, apperr.New(apperr.KindCanceled, opts.Kind.String()+" tasks", ctx.Err())
			}
			// Outcomes already delivered before the deadline still count.
			for drained := false; !drained; {
				select {
				case o := <-done:
					if err := handle(o); err != nil {
						return nil, err
					}
				default:
					drained = true
				}
			}
			for _, key := range keys {
				if _, ok := pending[key]; !ok {
					continue
				}
				anyTimeout = true
				label := tasks[key].Label
				opts.Logger.Printf("  ⚠ %s timed out after %s", label, opts.Timeout)
				record(key, TimedOut, apperr.New(apperr.KindTimeout, label, batchCtx.Err()))
			}
		}
	}

	if anyTimeout {
		opts.Reporter.TimeoutHint()
	}
	opts.Reporter.Done()
	return res, nil
}

// runOne executes task unless the batch is already over, turning a panic
// into an error.
func runOne[T any](ctx context.Context, task Task[T]) (value T, err error) {
	if err := ctx.Err(); err != nil {
		return value, err
	}
	var c panics.Catcher
	c.Try(func() {
		value, err = task.Fn(ctx)
	})
	if r := c.Recovered(); r != nil {
		return value, r.AsError()
	}
	return value, err
}

func errOrNil(err *apperr.Error) error {
	if err == nil {
		return nil
	}
	return err
}

// defaultValue is an empty, non-nil slice for Collection batches of slice
// type and the zero value otherwise.
func defaultValue[T any](kind Kind) T {
	var zero T
	if kind != Collection {
		return zero
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Slice {
		return reflect.MakeSlice(t, 0, 0).Interface().(T)
	}
	return zero
}

// As returns the value stored for key as T, or the zero T when the task did
// not succeed or produced a different type. It is meant for batches that mix
// result types behind Task[any].
func As[T any](r *Results[any], key string) T {
	v, _ := r.Values[key].(T)
	return v
}
