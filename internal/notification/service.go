package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/topicrelay/topicrelay/internal/telemetry"
)

const tracerName = "github.com/topicrelay/topicrelay/internal/notification"

// Operation names used in logs, spans and metrics.
const (
	OperationSend        = "send"
	OperationSubscribe   = "subscribe"
	OperationUnsubscribe = "unsubscribe"
)

// Provider defines the interface for push messaging providers.
type Provider interface {
	// Send publishes a message and returns the provider message ID.
	Send(ctx context.Context, msg *Message) (string, error)

	// SubscribeToTopic subscribes tokens to a prefixed topic.
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*TopicResponse, error)

	// UnsubscribeFromTopic unsubscribes tokens from a prefixed topic.
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*TopicResponse, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the notification service.
type ServiceConfig struct {
	// Provider performs delivery.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics

	// SkipSendTopicValidation forwards send topics without the character
	// class check applied to subscriptions. Default: validated.
	SkipSendTopicValidation bool
}

// Service validates requests and dispatches them to the provider.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	provider                Provider
	logger                  zerolog.Logger
	metrics                 *telemetry.ProviderMetrics
	tracer                  trace.Tracer
	skipSendTopicValidation bool
}

// NewService creates a new notification service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider:                cfg.Provider,
		logger:                  cfg.Logger,
		metrics:                 cfg.Metrics,
		tracer:                  otel.Tracer(tracerName),
		skipSendTopicValidation: cfg.SkipSendTopicValidation,
	}
}

// topicOperation describes the wording and provider call of a topic
// management operation.
type topicOperation struct {
	name     string
	done     string // "subscribed to"
	attempt  string // "subscribe to"
	progress string // "subscribing to"
	call     func(ctx context.Context, tokens []string, topic string) (*TopicResponse, error)
}

// Send publishes a notification to a topic.
// The returned error is non-nil only when the provider is unusable.
func (s *Service) Send(ctx context.Context, req NotificationRequest) (Outcome, error) {
	if o := ValidateNotification(req); o != nil {
		return *o, nil
	}

	topic := BareTopic(req.Topic)
	if !s.skipSendTopicValidation && !ValidTopicName(topic) {
		return Failed(MsgInvalidTopic), nil
	}

	msg := NewMessage(req, topic)

	var id string
	err := s.callProvider(ctx, OperationSend, topic, func(ctx context.Context) error {
		var sendErr error
		id, sendErr = s.provider.Send(ctx, msg)
		return sendErr
	})
	if err != nil {
		if errors.Is(err, ErrProviderNotInitialized) {
			return Outcome{}, err
		}
		s.logger.Error().Err(err).
			Str("operation", OperationSend).
			Str("topic", topic).
			Msg("error sending notification")
		return Failed(sendErrorMessage(err)), nil
	}

	s.logger.Info().
		Str("operation", OperationSend).
		Str("topic", topic).
		Str("message_id", id).
		Msg("notification sent")

	return Succeeded(MsgNotificationSent), nil
}

// Subscribe subscribes a device token to a topic.
func (s *Service) Subscribe(ctx context.Context, req SubscriptionRequest) (Outcome, error) {
	return s.manageTopic(ctx, req, topicOperation{
		name:     OperationSubscribe,
		done:     "subscribed to",
		attempt:  "subscribe to",
		progress: "subscribing to",
		call:     s.provider.SubscribeToTopic,
	})
}

// Unsubscribe unsubscribes a device token from a topic.
func (s *Service) Unsubscribe(ctx context.Context, req SubscriptionRequest) (Outcome, error) {
	return s.manageTopic(ctx, req, topicOperation{
		name:     OperationUnsubscribe,
		done:     "unsubscribed from",
		attempt:  "unsubscribe from",
		progress: "unsubscribing from",
		call:     s.provider.UnsubscribeFromTopic,
	})
}

func (s *Service) manageTopic(ctx context.Context, req SubscriptionRequest, op topicOperation) (Outcome, error) {
	if o := ValidateSubscription(req); o != nil {
		return *o, nil
	}

	topic, err := PrefixedTopic(req.Topic)
	if err != nil {
		return Failed(MsgInvalidTopic), nil
	}

	var resp *TopicResponse
	err = s.callProvider(ctx, op.name, topic, func(ctx context.Context) error {
		var callErr error
		resp, callErr = op.call(ctx, []string{req.Token}, topic)
		return callErr
	})
	if err != nil {
		if errors.Is(err, ErrProviderNotInitialized) {
			return Outcome{}, err
		}
		s.logger.Error().Err(err).
			Str("operation", op.name).
			Str("topic", topic).
			Str("token", maskToken(req.Token)).
			Msgf("error %s topic", op.progress)
		if msg := err.Error(); msg != "" {
			return Failed(msg), nil
		}
		return Failed(fmt.Sprintf("Error %s topic", op.progress)), nil
	}

	if resp != nil && resp.SuccessCount > 0 {
		s.logger.Info().
			Str("operation", op.name).
			Str("topic", topic).
			Str("token", maskToken(req.Token)).
			Int("success_count", resp.SuccessCount).
			Msg("topic membership updated")
		return Succeeded(fmt.Sprintf("Successfully %s topic: %s", op.done, req.Topic)), nil
	}

	errs := []TopicError{}
	if resp != nil && resp.Errors != nil {
		errs = resp.Errors
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding topic errors: %w", err)
	}

	s.logger.Warn().
		Str("operation", op.name).
		Str("topic", topic).
		Str("token", maskToken(req.Token)).
		RawJSON("errors", encoded).
		Msg("topic membership update rejected")

	return Failed(fmt.Sprintf("Failed to %s topic: %s. Errors: %s", op.attempt, req.Topic, encoded)), nil
}

// callProvider runs exactly one provider call inside a span and records
// its duration.
func (s *Service) callProvider(ctx context.Context, operation, topic string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "notification."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("notification.operation", operation),
			attribute.String("notification.topic", topic),
			attribute.String("provider.name", s.provider.Name()),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordCall(ctx, s.provider.Name(), operation, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return MsgInvalidCredential
	case errors.Is(err, ErrInvalidArgument):
		return MsgInvalidPayload
	case err.Error() != "":
		return err.Error()
	default:
		return MsgSendError
	}
}

// maskToken keeps only the last four characters of a device token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
