package notification

import (
	"errors"
	"regexp"
	"strings"
)

// TopicPrefix is the provider prefix used by topic management calls.
const TopicPrefix = "/topics/"

// ErrInvalidTopic is returned for topic names outside [A-Za-z0-9-_.~%]+.
var ErrInvalidTopic = errors.New("invalid topic name")

var topicNamePattern = regexp.MustCompile(`^[A-Za-z0-9\-_.~%]+$`)

// BareTopic trims the topic and strips one leading "/topics/" prefix.
// BareTopic("/topics/foo") == BareTopic("foo") == "foo".
func BareTopic(topic string) string {
	return strings.TrimPrefix(strings.TrimSpace(topic), TopicPrefix)
}

// ValidTopicName reports whether name is a valid bare topic name.
func ValidTopicName(name string) bool {
	return topicNamePattern.MatchString(name)
}

// PrefixedTopic normalizes topic and returns it in "/topics/<name>" form.
func PrefixedTopic(topic string) (string, error) {
	name := BareTopic(topic)
	if !ValidTopicName(name) {
		return "", ErrInvalidTopic
	}
	return TopicPrefix + name, nil
}
