package events

import (
	"encoding/json"
	"strings"

	"github.com/iota-go/client/iotaerr"
)

// MilestoneEvent is the decoded payload of milestones/latest and
// milestones/solid. spec.md §9 notes the node's "message_ids" field is
// singular in type despite its plural name; this client treats it as one
// MessageId string, per the spec's own resolution of that ambiguity.
type MilestoneEvent struct {
	Index     uint32 `json:"index"`
	MessageID string `json:"messageId"`
	Timestamp int64  `json:"timestamp"`
}

// MessageEvent is the decoded payload of "messages" and
// "messages/referenced".
type MessageEvent struct {
	MessageID string `json:"messageId"`
}

// MessageMetadataEvent is the decoded payload of
// "messages/{messageId}/metadata".
type MessageMetadataEvent struct {
	MessageID                 string  `json:"messageId"`
	ReferencedByMilestoneIndex *uint32 `json:"referencedByMilestoneIndex"`
	ShouldPromote              bool    `json:"shouldPromote,omitempty"`
	ShouldReattach             bool    `json:"shouldReattach,omitempty"`
}

// OutputEvent is the decoded payload of "outputs/{outputId}".
type OutputEvent struct {
	OutputID string `json:"outputId"`
	IsSpent  bool   `json:"isSpent"`
	Amount   uint64 `json:"amount"`
}

// AddressOutputsEvent is the decoded payload of
// "addresses/{address}/outputs".
type AddressOutputsEvent struct {
	Address   string   `json:"address"`
	OutputIDs []string `json:"outputIds"`
}

// IndexationEvent is the decoded payload of "messages/indexation/{index}".
type IndexationEvent struct {
	MessageID string `json:"messageId"`
	Index     string `json:"index"`
}

// decodeEvent maps a raw broker payload to its topic-specific shape (spec.md
// §6: "payloads are JSON objects whose shape depends on topic").
func decodeEvent(topic string, payload []byte) (interface{}, error) {
	var (
		out interface{}
		err error
	)

	switch {
	case topic == "milestones/latest" || topic == "milestones/solid":
		var e MilestoneEvent
		err = json.Unmarshal(payload, &e)
		out = e
	case topic == "messages" || topic == "messages/referenced":
		var e MessageEvent
		err = json.Unmarshal(payload, &e)
		out = e
	case strings.HasPrefix(topic, "messages/indexation/"):
		var e IndexationEvent
		err = json.Unmarshal(payload, &e)
		out = e
	case strings.HasPrefix(topic, "messages/") && strings.HasSuffix(topic, "/metadata"):
		var e MessageMetadataEvent
		err = json.Unmarshal(payload, &e)
		out = e
	case strings.HasPrefix(topic, "outputs/"):
		var e OutputEvent
		err = json.Unmarshal(payload, &e)
		out = e
	case strings.HasPrefix(topic, "addresses/") && strings.HasSuffix(topic, "/outputs"):
		var e AddressOutputsEvent
		err = json.Unmarshal(payload, &e)
		out = e
	default:
		return nil, iotaerr.Newf(iotaerr.KindInvalidTopic, "no decoder registered for topic %q", topic)
	}

	if err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	return out, nil
}
