package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/cache"
	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/domain/device"
	domain "github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/privacy"
	"github.com/Kirky-X/xlink/internal/ratelimit"
	"github.com/Kirky-X/xlink/internal/routing"
)

var (
	// ErrRateLimited is returned when the local device exceeded its send quota.
	ErrRateLimited = errors.New("send rate limit exceeded")
	// ErrBroadcastFailed is returned when no group member could be reached.
	ErrBroadcastFailed = errors.New("broadcast failed for every member")
	// ErrAttemptsExhausted is returned for messages that reached MaxAttempts.
	ErrAttemptsExhausted = errors.New("delivery attempts exhausted")
)

// receiptTTL is how long a sent receipt is kept in the cache.
const receiptTTL = 24 * time.Hour

type MessageService interface {
	// Send validates text, persists it and transmits it to recipient.
	// A transport failure leaves the message pending for redelivery.
	Send(ctx context.Context, recipient device.ID, text string, priority domain.Priority) (*domain.Message, error)

	// Deliver transmits an already built message. Control traffic is sent
	// once and never stored.
	Deliver(ctx context.Context, m *domain.Message) error

	GetSent(ctx context.Context, page, limit int) ([]*domain.Message, int64, error)
	ProcessBatch(ctx context.Context) error

	// Recover retries whatever was left pending by a previous run.
	Recover(ctx context.Context) error

	// Cleanup removes finished messages older than the retention window.
	Cleanup(ctx context.Context) (int, error)
}

// Settings holds the batch and delivery knobs, injected from config at startup.
type Settings struct {
	BatchSize         int
	MaxWorkers        int
	PerMessageTimeout time.Duration
	SendTimeout       time.Duration
	MaxAttempts       int
	Retention         time.Duration
}

// Deps are the collaborators shared by the message and group services.
type Deps struct {
	Self    device.ID
	Repo    domain.Repository
	Router  *routing.Router
	Caps    *capability.Manager
	Cache   cache.Cache
	Limiter *ratelimit.Limiter[device.ID]
	Metrics *metrics.Metrics
	Anon    *privacy.Anonymizer
	// Crypto seals text for peers it holds a session with. Nil sends
	// everything in the clear.
	Crypto *crypto.Engine
	Log    zerolog.Logger
}

type messageService struct {
	Deps
	settings Settings

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// NewMessageService creates a message service with the given dependencies
// and batch processing settings. The settings are passed explicitly from the
// caller so this package does not depend on env.
func NewMessageService(deps Deps, settings Settings) MessageService {
	// Apply sane defaults if config values are missing or invalid.
	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}
	if settings.MaxWorkers <= 0 {
		settings.MaxWorkers = 4
	}
	if settings.PerMessageTimeout <= 0 {
		settings.PerMessageTimeout = 10 * time.Second
	}
	if settings.SendTimeout <= 0 {
		settings.SendTimeout = 5 * time.Second
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 5
	}
	if deps.Anon == nil {
		deps.Anon = privacy.Disabled()
	}

	return &messageService{
		Deps:     deps,
		settings: settings,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

func (s *messageService) Send(ctx context.Context, recipient device.ID, text string, priority domain.Priority) (*domain.Message, error) {
	if s.Limiter != nil && !s.Limiter.Allow(s.Self) {
		return nil, ErrRateLimited
	}

	msg, err := domain.NewText(s.Self, recipient, text, priority)
	if err != nil {
		return nil, err
	}
	if err := s.Deliver(ctx, msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (s *messageService) Deliver(ctx context.Context, msg *domain.Message) error {
	if msg.IsControl() {
		_, err := s.transmit(ctx, msg)
		return err
	}

	if err := s.Repo.Save(ctx, msg); err != nil {
		return fmt.Errorf("save message %s: %w", msg.ID, err)
	}
	if !s.claim(msg.ID) {
		return nil
	}
	defer s.release(msg.ID)

	return s.processMessage(ctx, msg)
}

func (s *messageService) GetSent(ctx context.Context, page, limit int) ([]*domain.Message, int64, error) {
	return s.Repo.GetSent(ctx, page, limit)
}

// ProcessBatch pulls a batch of pending messages from the repository and
// processes them using a small worker pool. Messages another goroutine is
// already sending are skipped.
func (s *messageService) ProcessBatch(ctx context.Context) error {
	batchSize := s.settings.BatchSize
	maxWorkers := s.settings.MaxWorkers
	perMessageTimeout := s.settings.PerMessageTimeout

	// Fetch pending messages from the repository.
	pending, err := s.Repo.GetPending(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending messages: %w", err)
	}

	messages := make([]*domain.Message, 0, len(pending))
	for _, m := range pending {
		if s.claim(m.ID) {
			messages = append(messages, m)
		}
	}
	if s.Metrics != nil {
		s.Metrics.Pending(len(pending))
	}

	// Nothing to do; exit quickly so the scheduler can tick again.
	if len(messages) == 0 {
		s.Log.Debug().Msg("no pending messages to process")
		return nil
	}

	s.Log.Info().
		Int("count", len(messages)).
		Int("batch_size", batchSize).
		Int("max_workers", maxWorkers).
		Msg("processing pending messages")

	// Decide how many workers we need for this batch.
	workerCount := min(len(messages), maxWorkers)

	var wg sync.WaitGroup

	// Each worker processes a "stride" of messages. With 4 workers,
	// worker 1 takes indices 0, 4, 8 while worker 2 takes 1, 5, 9.
	for w := 0; w < workerCount; w++ {
		wg.Add(1)

		go func(workerID, start int) {
			defer wg.Done()

			for i := start; i < len(messages); i += workerCount {
				msg := messages[i]

				// If the parent context has been cancelled (e.g. by the scheduler),
				// release what is left and exit this worker.
				if ctx.Err() != nil {
					s.release(msg.ID)
					continue
				}

				// Wrap the parent context with a per-message timeout.
				msgCtx, cancel := context.WithTimeout(ctx, perMessageTimeout)
				if err := s.processMessage(msgCtx, msg); err != nil {
					s.Log.Debug().Err(err).Int("worker", workerID).Str("id", msg.ID.String()).Msg("redelivery failed")
				}
				cancel()
				s.release(msg.ID)
			}
		}(w+1, w)
	}

	// Wait until all workers have finished processing their share.
	wg.Wait()

	s.Log.Debug().Msg("batch worker pool completed")
	return ctx.Err()
}

func (s *messageService) Recover(ctx context.Context) error {
	if err := s.ProcessBatch(ctx); err != nil {
		return fmt.Errorf("recover pending messages: %w", err)
	}
	return nil
}

func (s *messageService) Cleanup(ctx context.Context) (int, error) {
	if sw, ok := s.Cache.(cache.Sweeper); ok {
		if n := sw.Sweep(); n > 0 {
			s.Log.Debug().Int("removed", n).Msg("swept expired cache keys")
		}
	}
	if s.settings.Retention <= 0 {
		return 0, nil
	}
	n, err := s.Repo.DeleteOlderThan(ctx, time.Now().Add(-s.settings.Retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup messages: %w", err)
	}
	if n > 0 {
		s.Log.Info().Int("removed", n).Dur("retention", s.settings.Retention).Msg("pruned old messages")
	}
	return n, nil
}

// processMessage transmits one stored message and persists the outcome.
//
// Flow:
//   - On success: mark the message SENT, persist it and cache a receipt.
//   - On failure: count the attempt and keep it PENDING, or mark it FAILED
//     once MaxAttempts is reached.
func (s *messageService) processMessage(ctx context.Context, msg *domain.Message) error {
	id := msg.ID.String()

	if msg.Attempts >= s.settings.MaxAttempts {
		msg.MarkFailed(fmt.Sprintf("gave up after %d attempts: %s", msg.Attempts, msg.LastError))
		s.persist(ctx, msg)
		return fmt.Errorf("send message %s: %w", id, ErrAttemptsExhausted)
	}

	ct, err := s.transmit(ctx, msg)
	if err != nil {
		msg.RecordFailure(err.Error())
		if msg.Attempts >= s.settings.MaxAttempts {
			s.Log.Warn().Str("id", id).Int("attempts", msg.Attempts).Msg("giving up on message")
			msg.MarkFailed(err.Error())
		}
		s.persist(ctx, msg)
		return fmt.Errorf("send message %s: %w", id, err)
	}

	msg.MarkSent(ct)
	if err := s.Repo.UpdateStatus(context.WithoutCancel(ctx), msg); err != nil {
		s.Log.Error().Err(err).Str("id", id).Msg("failed to persist SENT status")
		return fmt.Errorf("update status for %s: %w", id, err)
	}

	// Cache a receipt keyed by message id.
	if s.Cache != nil {
		key := cache.SentMessages.Key(id)
		if err := s.Cache.Set(context.WithoutCancel(ctx), key, msg.SentAt.Format(time.RFC3339), receiptTTL); err != nil {
			s.Log.Warn().Err(err).Str("id", id).Msg("failed to cache receipt")
		}
		if _, err := s.Cache.Incr(context.WithoutCancel(ctx), cache.Delivered.Key(string(ct))); err != nil {
			s.Log.Warn().Err(err).Str("channel", string(ct)).Msg("failed to count delivery")
		}
	}
	return nil
}

// persist stores the delivery state on a best effort basis. It runs even
// when ctx has expired so a timed out attempt is still counted.
func (s *messageService) persist(ctx context.Context, msg *domain.Message) {
	if err := s.Repo.UpdateStatus(context.WithoutCancel(ctx), msg); err != nil {
		s.Log.Error().Err(err).Str("id", msg.ID.String()).Str("status", string(msg.Status)).Msg("failed to persist message status")
	}
}

// transmit tries every usable channel, best first, and returns the one that
// accepted the message. Text for a peer with a session goes out sealed.
func (s *messageService) transmit(ctx context.Context, msg *domain.Message) (device.ChannelType, error) {
	log := s.Log.With().
		Str("id", msg.ID.String()).
		Str("to", s.Anon.Device(msg.Recipient)).
		Str("kind", string(msg.Payload.Kind)).
		Logger()

	cands, err := s.Router.Rank(ctx, msg)
	if err != nil {
		s.failed("no_route")
		return "", err
	}

	out := msg
	if s.Crypto != nil && s.Crypto.HasSession(msg.Recipient) {
		if out, err = s.Crypto.SealMessage(msg); err != nil {
			s.failed("crypto")
			log.Warn().Err(err).Msg("message not sealed")
			return "", err
		}
	}

	var errs []error
	for _, c := range cands {
		ct := c.Channel.Type()

		sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		err := c.Channel.Send(sendCtx, out)
		cancel()

		if err == nil {
			s.Router.Record(msg, ct)
			if s.Caps != nil {
				s.Caps.MarkSuccess(msg.Recipient, ct)
			}
			if s.Metrics != nil {
				s.Metrics.MessageSent(ct, out.Payload.Size())
			}
			log.Debug().Str("channel", string(ct)).Float64("score", c.Score).Bool("sealed", out != msg).Msg("message sent")
			return ct, nil
		}

		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
		}
		errs = append(errs, fmt.Errorf("%s: %w", ct, err))

		down := false
		if s.Caps != nil {
			down = s.Caps.MarkFailure(msg.Recipient, ct)
		}
		log.Warn().Err(err).Str("channel", string(ct)).Bool("link_down", down).Msg("channel send failed")

		if ctx.Err() != nil {
			break
		}
	}

	s.failed(failureReason(errs))
	return "", errors.Join(errs...)
}

func (s *messageService) failed(reason string) {
	if s.Metrics != nil {
		s.Metrics.SendFailed(reason)
	}
}

func failureReason(errs []error) string {
	err := errors.Join(errs...)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// claim marks id as being sent and reports whether the caller owns it.
func (s *messageService) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *messageService) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// compile-time interface check
var _ MessageService = (*messageService)(nil)
