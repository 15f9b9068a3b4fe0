package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
)

// ChannelPublisher is the subset of *redis.Client used for event fan-out.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  ChannelPublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. publisher may be nil, in which case events are
// only logged.
func NewNotificationService(dispatcher events.Dispatcher, publisher ChannelPublisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueForwarded, n.handleIssueForwarded)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleIssueStatusChanged)
	n.dispatcher.Subscribe(events.EventIssueEscalated, n.handleIssueEscalated)
	n.dispatcher.Subscribe(events.EventIssueReopened, n.handleIssueReopened)
	n.dispatcher.Subscribe(events.EventScoreAdjusted, n.handleScoreAdjusted)
}

func (n *NotificationService) handleIssueCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueCreated", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.IssueCreatedPayload); ok && payload.UrgentKeyword {
		n.sendEmailNotificationStub(ctx, event)
	}
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleIssueForwarded(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueForwarded", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleIssueStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueStatusChanged", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleIssueEscalated(ctx context.Context, event events.Event) error {
	n.logger.Warn("IssueEscalated", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleIssueReopened(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueReopened", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleScoreAdjusted(ctx context.Context, event events.Event) error {
	n.logger.Debug("ScoreAdjusted", zap.Any("payload", event.Payload))
	return n.fanOut(ctx, event)
}

// fanOut publishes the event as JSON on the configured Redis channel.
func (n *NotificationService) fanOut(ctx context.Context, event events.Event) error {
	channel := strings.TrimSpace(n.cfg.RedisChannel)
	if n.publisher == nil || channel == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, channel, body).Err(); err != nil {
		n.logger.Warn("publish event", zap.String("channel", channel), zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}
