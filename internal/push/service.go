package push

import (
	"context"
	"errors"
	"time"

	"SchoolBeacon/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	batchSize    = 100
	chunkTimeout = 10 * time.Second
	retryBackoff = 300 * time.Millisecond
)

var ErrInvalidSubscription = errors.New("invalid push subscription")

// SubscriptionStore is the persistence slice SendBatch needs.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *Subscription) error
	ActiveByUserIDs(ctx context.Context, userIDs []string) ([]Subscription, error)
	Disable(ctx context.Context, endpoint string) error
}

// Sender delivers to one endpoint of a specific channel kind.
type Sender interface {
	ValidEndpoint(sub Subscription) bool
	Send(ctx context.Context, sub Subscription, title, body string, data map[string]string) error
}

// Service is the push gateway adapter: it fans a user-id batch out to every
// active endpoint, prunes endpoints the gateways report gone, and retries
// transient failures exactly once. There is no durable retry queue; a chunk
// that fails twice is dropped and only counted.
type Service struct {
	store   SubscriptionStore
	mobile  Sender
	browser Sender
	logger  *zap.Logger
}

func NewService(store SubscriptionStore, mobile *MobileSender, browser *BrowserSender, logger *zap.Logger) *Service {
	return &Service{store: store, mobile: mobile, browser: browser, logger: logger}
}

// RegisterEndpoint upserts a subscription by its remote endpoint identity.
func (s *Service) RegisterEndpoint(ctx context.Context, sub *Subscription) error {
	if sub.UserID == "" || sub.SchoolID == "" || sub.Endpoint == "" {
		return ErrInvalidSubscription
	}
	switch sub.Channel {
	case ChannelMobile:
		if !s.mobile.ValidEndpoint(*sub) {
			return ErrInvalidSubscription
		}
	case ChannelBrowser:
		if !s.browser.ValidEndpoint(*sub) {
			return ErrInvalidSubscription
		}
	default:
		return ErrInvalidSubscription
	}
	return s.store.Upsert(ctx, sub)
}

// SendBatch delivers a message to every active endpoint of the given users.
func (s *Service) SendBatch(ctx context.Context, userIDs []string, title, body string, data map[string]string) (Report, error) {
	var report Report
	if len(userIDs) == 0 {
		return report, nil
	}

	subs, err := s.store.ActiveByUserIDs(ctx, userIDs)
	if err != nil {
		return report, err
	}

	var mobileSubs, browserSubs []Subscription
	for _, sub := range subs {
		switch sub.Channel {
		case ChannelMobile:
			if s.mobile.ValidEndpoint(sub) {
				mobileSubs = append(mobileSubs, sub)
			}
		case ChannelBrowser:
			if s.browser.ValidEndpoint(sub) {
				browserSubs = append(browserSubs, sub)
			}
		}
	}

	batchID := uuid.New().String()
	log := s.logger.With(zap.String("batch_id", batchID))

	report = report.Add(s.sendChunked(ctx, log, s.mobile, mobileSubs, title, body, data))
	report = report.Add(s.sendChunked(ctx, log, s.browser, browserSubs, title, body, data))

	log.Info("push batch finished",
		zap.Int("sent", report.Sent),
		zap.Int("disabled", report.Disabled),
		zap.Int("failed", report.Failed))
	return report, nil
}

// sendChunked processes fixed-size chunks sequentially, each under its own
// timeout so one stuck chunk cannot block the rest of the batch.
func (s *Service) sendChunked(ctx context.Context, log *zap.Logger, sender Sender, subs []Subscription, title, body string, data map[string]string) Report {
	var report Report
	for start := 0; start < len(subs); start += batchSize {
		end := start + batchSize
		if end > len(subs) {
			end = len(subs)
		}

		chunkCtx, cancel := context.WithTimeout(ctx, chunkTimeout)
		for _, sub := range subs[start:end] {
			report = report.Add(s.sendOne(chunkCtx, log, sender, sub, title, body, data))
		}
		cancel()
	}
	return report
}

func (s *Service) sendOne(ctx context.Context, log *zap.Logger, sender Sender, sub Subscription, title, body string, data map[string]string) Report {
	err := sender.Send(ctx, sub, title, body, data)
	if err == nil {
		metrics.PushSent.Inc()
		return Report{Sent: 1}
	}
	if errors.Is(err, ErrEndpointGone) {
		return s.disable(log, sub)
	}

	// transient: one retry after a short backoff, then give up silently
	time.Sleep(retryBackoff)
	err = sender.Send(ctx, sub, title, body, data)
	if err == nil {
		metrics.PushSent.Inc()
		return Report{Sent: 1}
	}
	if errors.Is(err, ErrEndpointGone) {
		return s.disable(log, sub)
	}

	log.Warn("push send failed",
		zap.String("endpoint", sub.Endpoint),
		zap.String("channel", string(sub.Channel)),
		zap.Error(err))
	metrics.PushFailed.Inc()
	return Report{Failed: 1}
}

func (s *Service) disable(log *zap.Logger, sub Subscription) Report {
	// disable under a fresh context: the chunk timeout must not stop the prune
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Disable(ctx, sub.Endpoint); err != nil {
		log.Error("failed to disable push endpoint",
			zap.String("endpoint", sub.Endpoint), zap.Error(err))
	}
	metrics.PushDisabled.Inc()
	return Report{Disabled: 1}
}
