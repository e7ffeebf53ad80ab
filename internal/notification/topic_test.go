package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicrelay/topicrelay/internal/notification"
)

func TestBareTopic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", "foo", "foo"},
		{"prefixed", "/topics/foo", "foo"},
		{"whitespace", "  /topics/foo  ", "foo"},
		{"prefix case sensitive", "/TOPICS/foo", "/TOPICS/foo"},
		{"only one prefix stripped", "/topics//topics/foo", "/topics/foo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notification.BareTopic(tt.input))
		})
	}
}

func TestBareTopic_Idempotent(t *testing.T) {
	once := notification.BareTopic("/topics/foo")
	assert.Equal(t, once, notification.BareTopic(once))
	assert.Equal(t, notification.BareTopic("foo"), once)
}

func TestPrefixedTopic_Valid(t *testing.T) {
	topic, err := notification.PrefixedTopic("foo-bar_1.2~3%4")
	require.NoError(t, err)
	assert.Equal(t, "/topics/foo-bar_1.2~3%4", topic)

	topic, err = notification.PrefixedTopic("/topics/news")
	require.NoError(t, err)
	assert.Equal(t, "/topics/news", topic)
}

func TestPrefixedTopic_Invalid(t *testing.T) {
	for _, input := range []string{"foo bar!", "", "   ", "/topics/", "a/b", "ünïcode", "foo#"} {
		t.Run(input, func(t *testing.T) {
			_, err := notification.PrefixedTopic(input)
			assert.ErrorIs(t, err, notification.ErrInvalidTopic)
		})
	}
}
