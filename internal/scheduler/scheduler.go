// Package scheduler periodically retries pending messages and prunes old
// ones.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// BatchProcessor is the dependency that actually does the work.
// The scheduler will call ProcessBatch on a fixed interval.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// Cleaner prunes finished messages. It runs every CleanupEvery.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// SchedulerService exposes a small control surface for the scheduler.
// Start/Stop are synchronous controls, and IsRunning reports
// whether the scheduler is currently accepting ticks.
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
	// Close stops the control loop for good.
	Close() error
}

const (
	// DefaultInterval is used when no custom interval is provided.
	DefaultInterval = 5 * time.Second
	// DefaultBatchTimeout bounds a single batch.
	DefaultBatchTimeout = 30 * time.Second
	// DefaultCleanupEvery is how often the cleaner runs.
	DefaultCleanupEvery = time.Hour
)

// controlTimeout is how long we wait for the control loop to
// accept a Start/Stop command and acknowledge it.
const controlTimeout = 2 * time.Second

var (
	ErrNotResponding = errors.New("scheduler control loop not responding")
	ErrClosed        = errors.New("scheduler closed")
)

type controlOp int

const (
	opStart controlOp = iota
	opStop
	opStatus
)

type controlMsg struct {
	op   controlOp
	resp chan bool
}

type Options struct {
	Interval     time.Duration
	BatchTimeout time.Duration
	// Cleaner is optional.
	Cleaner      Cleaner
	CleanupEvery time.Duration
	Log          zerolog.Logger
}

// schedulerService owns the internal state and runs the control loop.
// All mutable state lives in the loop goroutine.
type schedulerService struct {
	processor BatchProcessor
	opts      Options
	ctrl      chan controlMsg
	quit      chan struct{}
	done      chan struct{}
	now       func() time.Time
}

// NewSchedulerService creates a scheduler and starts its control loop. The
// scheduler itself begins idle; call Start to process ticks.
func NewSchedulerService(p BatchProcessor, opts Options) SchedulerService {
	return newScheduler(p, opts)
}

func newScheduler(p BatchProcessor, opts Options) *schedulerService {
	// Apply sane defaults if the caller passes zero values.
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}
	if opts.CleanupEvery <= 0 {
		opts.CleanupEvery = DefaultCleanupEvery
	}

	s := &schedulerService{
		processor: p,
		opts:      opts,
		ctrl:      make(chan controlMsg),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	go s.loop()
	return s
}

// send delivers a control message and waits for its answer.
func (s *schedulerService) send(op controlOp, wait time.Duration) (bool, error) {
	msg := controlMsg{op: op, resp: make(chan bool, 1)}

	select {
	case s.ctrl <- msg:
	case <-s.quit:
		return false, ErrClosed
	case <-time.After(controlTimeout):
		return false, ErrNotResponding
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timeout = time.After(wait)
	}
	select {
	case v := <-msg.resp:
		return v, nil
	case <-timeout:
		return false, ErrNotResponding
	}
}

// Start tells the scheduler to begin processing ticks.
func (s *schedulerService) Start() error {
	_, err := s.send(opStart, controlTimeout)
	return err
}

// Stop tells the scheduler to stop accepting new ticks. If a batch is
// running, Stop waits until it finishes or its timeout passes.
func (s *schedulerService) Stop() error {
	_, err := s.send(opStop, s.opts.BatchTimeout+controlTimeout)
	return err
}

// IsRunning reports whether new ticks will be processed. It does not mean a
// batch is executing right now.
func (s *schedulerService) IsRunning() bool {
	running, err := s.send(opStatus, controlTimeout)
	return err == nil && running
}

// Close stops the scheduler and ends the control loop. Further calls
// return ErrClosed.
func (s *schedulerService) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	close(s.quit)
	<-s.done
	return nil
}

func (s *schedulerService) loop() {
	defer close(s.done)

	log := s.opts.Log
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	running := false
	lastCleanup := s.now()

	// Batches run on their own goroutine so the loop keeps answering
	// status requests. batchDone is non-nil while one is in flight.
	var batchDone chan struct{}
	var pendingStop []chan bool

	for {
		select {
		case <-s.quit:
			return

		case msg := <-s.ctrl:
			switch msg.op {
			case opStart:
				if !running {
					log.Info().
						Dur("interval", s.opts.Interval).
						Dur("batch_timeout", s.opts.BatchTimeout).
						Msg("scheduler started")
				}
				running = true
				msg.resp <- true

			case opStop:
				if running {
					log.Info().Msg("scheduler stop requested")
				}
				running = false
				if batchDone != nil {
					pendingStop = append(pendingStop, msg.resp)
				} else {
					msg.resp <- true
				}

			case opStatus:
				msg.resp <- running
			}

		case <-batchDone:
			batchDone = nil
			for _, resp := range pendingStop {
				resp <- true
			}
			if len(pendingStop) > 0 {
				log.Info().Msg("scheduler stopped")
			}
			pendingStop = nil

		case <-ticker.C:
			if !running || batchDone != nil {
				continue
			}
			cleanup := s.opts.Cleaner != nil && s.now().Sub(lastCleanup) >= s.opts.CleanupEvery
			if cleanup {
				lastCleanup = s.now()
			}
			batchDone = make(chan struct{})
			go s.runBatch(batchDone, cleanup)
		}
	}
}

func (s *schedulerService) runBatch(done chan struct{}, cleanup bool) {
	defer close(done)
	log := s.opts.Log

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.BatchTimeout)
	defer cancel()

	start := s.now()
	if err := s.processor.ProcessBatch(ctx); err != nil {
		log.Error().Err(err).Msg("batch failed")
	} else {
		log.Debug().Dur("took", s.now().Sub(start)).Msg("batch completed")
	}

	if !cleanup {
		return
	}
	n, err := s.opts.Cleaner.Cleanup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int("removed", n).Msg("old messages removed")
	}
}

// compile-time interface check
var _ SchedulerService = (*schedulerService)(nil)
