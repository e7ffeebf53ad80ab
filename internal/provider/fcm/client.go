package fcm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/topicrelay/topicrelay/internal/notification"
)

// ProviderName identifies this provider in logs and metrics.
const ProviderName = "fcm"

// Messaging is the subset of *messaging.Client used by the provider.
type Messaging interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// MessagingFactory builds a Messaging client from service-account JSON.
type MessagingFactory func(ctx context.Context, credentials []byte, projectID string) (Messaging, error)

// ClientConfig holds configuration for the FCM client.
type ClientConfig struct {
	// Credentials selects the service-account source.
	Credentials CredentialSource

	// Logger for initialization.
	Logger zerolog.Logger

	// Factory builds the messaging client. Default: firebase-admin.
	Factory MessagingFactory
}

// Client is the process-wide push provider. Construct it once at startup
// and call Init; it is read-only and safe for concurrent use afterwards.
type Client struct {
	source  CredentialSource
	logger  zerolog.Logger
	factory MessagingFactory

	once      sync.Once
	initErr   error
	ready     atomic.Bool
	messaging Messaging
}

// NewClient creates an uninitialized FCM client.
func NewClient(cfg ClientConfig) *Client {
	factory := cfg.Factory
	if factory == nil {
		factory = newFirebaseMessaging
	}
	return &Client{
		source:  cfg.Credentials,
		logger:  cfg.Logger,
		factory: factory,
	}
}

// Init resolves credentials and creates the messaging client. Only the
// first call does any work; later and concurrent calls return its result.
func (c *Client) Init(ctx context.Context) error {
	c.once.Do(func() {
		creds, projectID, err := c.source.Resolve()
		if err != nil {
			c.initErr = fmt.Errorf("resolving firebase credentials: %w", err)
			return
		}

		m, err := c.factory(ctx, creds, projectID)
		if err != nil {
			c.initErr = fmt.Errorf("initializing firebase messaging: %w", err)
			return
		}

		c.messaging = m
		c.ready.Store(true)

		c.logger.Info().
			Str("project_id", projectID).
			Str("credential_source", c.source.Describe()).
			Msg("firebase messaging initialized")
	})
	return c.initErr
}

// Ready reports whether Init has succeeded.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Send publishes a message to its topic.
func (c *Client) Send(ctx context.Context, msg *notification.Message) (string, error) {
	m, err := c.client()
	if err != nil {
		return "", err
	}
	id, err := m.Send(ctx, toFirebaseMessage(msg))
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// SubscribeToTopic subscribes tokens to a prefixed topic.
func (c *Client) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	m, err := c.client()
	if err != nil {
		return nil, err
	}
	resp, err := m.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return nil, classify(err)
	}
	return fromTopicResponse(resp), nil
}

// UnsubscribeFromTopic unsubscribes tokens from a prefixed topic.
func (c *Client) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	m, err := c.client()
	if err != nil {
		return nil, err
	}
	resp, err := m.UnsubscribeFromTopic(ctx, tokens, topic)
	if err != nil {
		return nil, classify(err)
	}
	return fromTopicResponse(resp), nil
}

func (c *Client) client() (Messaging, error) {
	if !c.ready.Load() {
		return nil, notification.ErrProviderNotInitialized
	}
	return c.messaging, nil
}

func newFirebaseMessaging(ctx context.Context, credentials []byte, projectID string) (Messaging, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, err
	}
	return app.Messaging(ctx)
}

func toFirebaseMessage(msg *notification.Message) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Notification.Title,
			Body:  msg.Notification.Body,
		},
		Data:  msg.Data,
		Topic: msg.Topic,
	}
}

func fromTopicResponse(resp *messaging.TopicManagementResponse) *notification.TopicResponse {
	out := &notification.TopicResponse{Errors: []notification.TopicError{}}
	if resp == nil {
		return out
	}
	out.SuccessCount = resp.SuccessCount
	out.FailureCount = resp.FailureCount
	for _, e := range resp.Errors {
		if e == nil {
			continue
		}
		out.Errors = append(out.Errors, notification.TopicError{Index: e.Index, Reason: e.Reason})
	}
	return out
}

// classify tags firebase errors with the matching notification error kind,
// keeping the firebase message as the error text.
func classify(err error) error {
	switch {
	case isCredentialError(err):
		return &notification.ProviderError{Kind: notification.ErrInvalidCredential, Err: err}
	case errorutils.IsInvalidArgument(err):
		return &notification.ProviderError{Kind: notification.ErrInvalidArgument, Err: err}
	default:
		return err
	}
}

func isCredentialError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	return errorutils.IsUnauthenticated(err) || messaging.IsThirdPartyAuthError(err)
}
