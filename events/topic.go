package events

import (
	"strings"

	"github.com/iota-go/client/iotaerr"
)

// literal topics are matched verbatim (spec.md §4.7).
var literalTopics = map[string]bool{
	"milestones/latest":   true,
	"milestones/solid":    true,
	"messages":            true,
	"messages/referenced": true,
}

// templatePrefix/suffix pairs bracket the one templated path segment a
// topic of that shape carries, e.g. "messages/" + "{messageId}" + "/metadata".
var templatedTopics = []struct {
	prefix string
	suffix string
}{
	{"messages/", "/metadata"},
	{"outputs/", ""},
	{"addresses/", "/outputs"},
	{"messages/indexation/", ""},
}

// ValidateTopic checks topic against spec.md §4.7's allowed grammar:
// the four literal topics, or one of the four templated shapes with a
// non-empty substituted segment.
func ValidateTopic(topic string) error {
	if literalTopics[topic] {
		return nil
	}

	for _, t := range templatedTopics {
		if !strings.HasPrefix(topic, t.prefix) || !strings.HasSuffix(topic, t.suffix) {
			continue
		}
		body := strings.TrimSuffix(strings.TrimPrefix(topic, t.prefix), t.suffix)
		// The substituted segment must be non-empty and must not contain a
		// slash, for every template; this also keeps e.g.
		// "messages/indexation/X/metadata" from matching the
		// "messages/{messageId}/metadata" template.
		if body == "" || strings.Contains(body, "/") {
			continue
		}
		return nil
	}

	return iotaerr.Newf(iotaerr.KindInvalidTopic, "topic %q does not match the allowed grammar", topic)
}
