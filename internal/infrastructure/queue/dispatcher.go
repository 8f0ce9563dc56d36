package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
	drainTimeout   = 10 * time.Second
)

// ErrDispatcherStopped is returned by Enqueue once shutdown has begun.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher routes user actions to a fixed set of workers using consistent
// hashing on the sender identity. Actions of one user are handled one at a
// time and in arrival order; different users run in parallel.
//
// On shutdown the dispatcher stops accepting actions and workers finish
// what is already buffered within drainTimeout. Actions still buffered
// after that are logged at error level.
type Dispatcher struct {
	workers []chan domain.Action
	service ports.AttendanceService
	log     zerolog.Logger
	wg      sync.WaitGroup

	drainTimeout time.Duration

	mu       sync.RWMutex
	sealed   bool
	stopping <-chan struct{}
	closed   chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AttendanceService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:      make([]chan domain.Action, numWorkers),
		service:      service,
		log:          log,
		drainTimeout: drainTimeout,
		closed:       make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Action, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled, Enqueue
// starts failing with ErrDispatcherStopped and workers drain their buffers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.stopping = ctx.Done()
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.sealed = true
		d.mu.Unlock()
		close(d.closed)
	}()

	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue sends an action to the worker responsible for its identity. It
// blocks while that worker's buffer is full and gives up when ctx ends or
// the dispatcher shuts down.
func (d *Dispatcher) Enqueue(ctx context.Context, a domain.Action) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.sealed {
		return ErrDispatcherStopped
	}

	idx := d.shardIndex(a.Identity)
	select {
	case d.workers[idx] <- a:
		metrics.ActionsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopping:
		return ErrDispatcherStopped
	}
}

// EnqueueBatch enqueues multiple actions preserving per-identity ordering.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, actions []domain.Action) error {
	for _, a := range actions {
		if err := d.Enqueue(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// shardIndex maps an identity deterministically to a worker index.
func (d *Dispatcher) shardIndex(identity string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Action) {
	defer d.wg.Done()
	depth := metrics.ActionsQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		if ctx.Err() != nil {
			d.drain(ctx, id, ch, depth)
			return
		}
		select {
		case <-ctx.Done():
		case a := <-ch:
			depth.Dec()
			d.handle(ctx, id, a)
		}
	}
}

// drain handles what is left in ch once no more sends can happen.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.Action, depth prometheus.Gauge) {
	<-d.closed

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
	defer cancel()

	drained, dropped := 0, 0
	for {
		select {
		case a := <-ch:
			depth.Dec()
			if dctx.Err() != nil {
				dropped++
				d.log.Error().
					Str("identity", a.Identity).
					Str("action_id", a.ID).
					Str("action", string(a.Kind)).
					Int("worker_id", id).
					Msg("action dropped on shutdown")
				continue
			}
			d.handle(dctx, id, a)
			drained++
		default:
			if drained+dropped > 0 {
				d.log.Info().Int("worker_id", id).Int("drained", drained).Int("dropped", dropped).
					Msg("worker drained")
			}
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, id int, a domain.Action) {
	if err := d.service.Handle(ctx, a); err != nil {
		d.log.Error().Err(err).
			Str("identity", a.Identity).
			Str("action", string(a.Kind)).
			Int("worker_id", id).
			Msg("action processing failed")
	}
}
