package notification_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/topicrelay/topicrelay/internal/notification"
)

// stubProvider is a stub push provider for testing.
type stubProvider struct {
	mu sync.Mutex

	sendID   string
	sendErr  error
	topicRes *notification.TopicResponse
	topicErr error

	sent         []*notification.Message
	topicCalls   []topicCall
	sendCalls    int
	topicCallCnt int
}

type topicCall struct {
	op     string
	tokens []string
	topic  string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Send(_ context.Context, msg *notification.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendCalls++
	p.sent = append(p.sent, msg)
	return p.sendID, p.sendErr
}

func (p *stubProvider) SubscribeToTopic(_ context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	return p.topic("subscribe", tokens, topic)
}

func (p *stubProvider) UnsubscribeFromTopic(_ context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	return p.topic("unsubscribe", tokens, topic)
}

func (p *stubProvider) topic(op string, tokens []string, topic string) (*notification.TopicResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicCallCnt++
	p.topicCalls = append(p.topicCalls, topicCall{op: op, tokens: tokens, topic: topic})
	return p.topicRes, p.topicErr
}

func newService(p *stubProvider) *notification.Service {
	return notification.NewService(notification.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
	})
}

func TestService_Send_Success(t *testing.T) {
	p := &stubProvider{sendID: "projects/p/messages/1"}
	svc := newService(p)

	out, err := svc.Send(context.Background(), notification.NotificationRequest{
		Title:   "T",
		Message: "M",
		Topic:   "news",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.Outcome{Success: true, Message: "Notification sent successfully"}, out)

	require.Len(t, p.sent, 1)
	assert.Equal(t, &notification.Message{
		Notification: notification.Notification{Title: "T", Body: "M"},
		Data:         map[string]string{},
		Topic:        "news",
	}, p.sent[0])
}

func TestService_Send_StripsPrefixAndPassesData(t *testing.T) {
	p := &stubProvider{}
	svc := newService(p)

	out, err := svc.Send(context.Background(), notification.NotificationRequest{
		Title:   "T",
		Message: "M",
		Topic:   " /topics/news ",
		Data:    map[string]string{"k": "v"},
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.Len(t, p.sent, 1)
	assert.Equal(t, "news", p.sent[0].Topic)
	assert.Equal(t, map[string]string{"k": "v"}, p.sent[0].Data)
}

func TestService_Send_MissingFields(t *testing.T) {
	p := &stubProvider{}
	svc := newService(p)

	requests := []notification.NotificationRequest{
		{Message: "M", Topic: "news"},
		{Title: "T", Topic: "news"},
		{Title: "T", Message: "M"},
		{},
	}

	for i, req := range requests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			out, err := svc.Send(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, notification.Outcome{Success: false, Message: "Please add message, topic, and title"}, out)
		})
	}
	assert.Zero(t, p.sendCalls)
}

func TestService_Send_TopicValidation(t *testing.T) {
	p := &stubProvider{}
	req := notification.NotificationRequest{Title: "T", Message: "M", Topic: "foo bar!"}

	out, err := newService(p).Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, notification.Failed(notification.MsgInvalidTopic), out)
	assert.Zero(t, p.sendCalls)

	lenient := notification.NewService(notification.ServiceConfig{
		Provider:                p,
		Logger:                  zerolog.Nop(),
		SkipSendTopicValidation: true,
	})
	out, err = lenient.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.Len(t, p.sent, 1)
	assert.Equal(t, "foo bar!", p.sent[0].Topic)
}

func TestService_Send_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid credential",
			err:  &notification.ProviderError{Kind: notification.ErrInvalidCredential, Err: errors.New("token exchange failed")},
			want: notification.MsgInvalidCredential,
		},
		{
			name: "invalid argument",
			err:  &notification.ProviderError{Kind: notification.ErrInvalidArgument, Err: errors.New("bad topic")},
			want: notification.MsgInvalidPayload,
		},
		{
			name: "provider text",
			err:  errors.New("service unavailable"),
			want: "service unavailable",
		},
		{
			name: "empty text",
			err:  errors.New(""),
			want: "Error sending notification",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{sendErr: tt.err}
			out, err := newService(p).Send(context.Background(), notification.NotificationRequest{
				Title: "T", Message: "M", Topic: "news",
			})
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, tt.want, out.Message)
			assert.Equal(t, 1, p.sendCalls)
		})
	}
}

func TestService_Topic_ProviderErrorText(t *testing.T) {
	p := &stubProvider{topicErr: &notification.ProviderError{
		Kind: notification.ErrInvalidArgument,
		Err:  errors.New("The registration token is not a valid FCM registration token"),
	}}

	out, err := newService(p).Subscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "sports",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.Failed("The registration token is not a valid FCM registration token"), out)
}

func TestService_Send_NotInitialized(t *testing.T) {
	p := &stubProvider{sendErr: notification.ErrProviderNotInitialized}

	_, err := newService(p).Send(context.Background(), notification.NotificationRequest{
		Title: "T", Message: "M", Topic: "news",
	})
	assert.ErrorIs(t, err, notification.ErrProviderNotInitialized)
}

func TestService_Subscribe_Success(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{SuccessCount: 1, Errors: []notification.TopicError{}}}

	out, err := newService(p).Subscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "sports",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.Outcome{Success: true, Message: "Successfully subscribed to topic: sports"}, out)

	require.Len(t, p.topicCalls, 1)
	assert.Equal(t, topicCall{op: "subscribe", tokens: []string{"tok1"}, topic: "/topics/sports"}, p.topicCalls[0])
}

func TestService_Subscribe_UsesCallerTopicInMessage(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{SuccessCount: 1}}

	out, err := newService(p).Subscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "/topics/sports",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully subscribed to topic: /topics/sports", out.Message)
	assert.Equal(t, "/topics/sports", p.topicCalls[0].topic)
}

func TestService_Unsubscribe_Success(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{SuccessCount: 1}}

	out, err := newService(p).Unsubscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "sports",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.Outcome{Success: true, Message: "Successfully unsubscribed from topic: sports"}, out)
	assert.Equal(t, "unsubscribe", p.topicCalls[0].op)
}

func TestService_Unsubscribe_ZeroSuccess(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{
		FailureCount: 1,
		Errors:       []notification.TopicError{{Index: 0, Reason: "bad token"}},
	}}

	out, err := newService(p).Unsubscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "sports",
	})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, `Failed to unsubscribe from topic: sports. Errors: [{"index":0,"error":"bad token"}]`, out.Message)
}

func TestService_Subscribe_ZeroSuccessWithoutErrors(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{}}

	out, err := newService(p).Subscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "sports",
	})
	require.NoError(t, err)
	assert.Equal(t, "Failed to subscribe to topic: sports. Errors: []", out.Message)
}

func TestService_Subscribe_MissingFields(t *testing.T) {
	p := &stubProvider{}
	svc := newService(p)

	for _, req := range []notification.SubscriptionRequest{{Token: "tok1"}, {Topic: "sports"}, {}} {
		out, err := svc.Subscribe(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, notification.Outcome{Success: false, Message: "Please provide token and topic"}, out)

		out, err = svc.Unsubscribe(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, notification.Outcome{Success: false, Message: "Please provide token and topic"}, out)
	}
	assert.Zero(t, p.topicCallCnt)
}

func TestService_Subscribe_InvalidTopic(t *testing.T) {
	p := &stubProvider{}

	out, err := newService(p).Subscribe(context.Background(), notification.SubscriptionRequest{
		Token: "tok1", Topic: "foo bar!",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.Failed(notification.MsgInvalidTopic), out)
	assert.Zero(t, p.topicCallCnt)
}

func TestService_TopicProviderErrors(t *testing.T) {
	p := &stubProvider{topicErr: errors.New("network unreachable")}
	svc := newService(p)
	req := notification.SubscriptionRequest{Token: "tok1", Topic: "sports"}

	out, err := svc.Subscribe(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, notification.Failed("network unreachable"), out)

	p.topicErr = errors.New("")
	out, err = svc.Subscribe(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, notification.Failed("Error subscribing to topic"), out)

	out, err = svc.Unsubscribe(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, notification.Failed("Error unsubscribing from topic"), out)

	p.topicErr = notification.ErrProviderNotInitialized
	_, err = svc.Unsubscribe(context.Background(), req)
	assert.ErrorIs(t, err, notification.ErrProviderNotInitialized)

	assert.Equal(t, 4, p.topicCallCnt)
}

func TestService_RecordsProviderSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := &stubProvider{sendErr: errors.New("boom")}
	_, err := newService(p).Send(context.Background(), notification.NotificationRequest{
		Title: "T", Message: "M", Topic: "news",
	})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "notification.send", spans[0].Name())
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestService_ConcurrentRequests(t *testing.T) {
	p := &stubProvider{topicRes: &notification.TopicResponse{SuccessCount: 1}}
	svc := newService(p)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Subscribe(context.Background(), notification.SubscriptionRequest{
				Token: fmt.Sprintf("tok%d", i), Topic: "sports",
			})
			assert.NoError(t, err)
			assert.True(t, out.Success)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, p.topicCallCnt)
}
