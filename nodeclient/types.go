// Package nodeclient implements typed RPC over HTTP to a single node
// endpoint (spec.md §4.3), one method per REST resource listed in spec.md
// §6.1. JSON (de)serialization of node responses is, per spec.md §1, out of
// scope beyond semantic shape validation; this package therefore decodes
// with stdlib encoding/json (no third-party JSON codec appears anywhere in
// the retrieval pack, see DESIGN.md) and checks only the fields this client
// actually consumes.
package nodeclient

import "github.com/iota-go/client/codec"

// NodeInfo is the decoded body of GET /api/v1/info.
type NodeInfo struct {
	Name                     string   `json:"name"`
	Version                  string   `json:"version"`
	IsHealthy                bool     `json:"isHealthy"`
	CoordinatorPublicKey     string   `json:"coordinatorPublicKey"`
	LatestMilestoneMessageID string   `json:"latestMilestoneMessageId"`
	LatestMilestoneIndex     uint32   `json:"latestMilestoneIndex"`
	SolidMilestoneMessageID  string   `json:"solidMilestoneMessageId"`
	SolidMilestoneIndex      uint32   `json:"solidMilestoneIndex"`
	PruningIndex             uint32   `json:"pruningIndex"`
	Features                 []string `json:"features"`
	Network                  string   `json:"network"`
	MinPoWScore              float64  `json:"minPowScore"`
}

// Tips is the decoded body of GET /api/v1/tips.
type Tips struct {
	Parent1 codec.MessageId `json:"-"`
	Parent2 codec.MessageId `json:"-"`
}

type tipsWire struct {
	TipMessageIds []string `json:"tipMessageIds"`
}

// OutputMetadata is the decoded body of GET /api/v1/outputs/{outputId}.
type OutputMetadata struct {
	MessageID      string `json:"messageId"`
	TransactionID  string `json:"transactionId"`
	OutputIndex    uint16 `json:"outputIndex"`
	IsSpent        bool   `json:"isSpent"`
	Amount         uint64 `json:"amount"`
	AddressHex     string `json:"address"`
	LedgerIndex    uint32 `json:"ledgerIndex"`
}

// AddressBalance is the decoded body of GET /api/v1/addresses/{addr}/balance.
type AddressBalance struct {
	AddressHex string `json:"address"`
	Balance    uint64 `json:"balance"`
	LedgerIndex uint32 `json:"ledgerIndex"`
}

// AddressOutputs is the decoded body of GET /api/v1/addresses/{addr}/outputs.
type AddressOutputs struct {
	AddressHex string   `json:"address"`
	OutputIDs  []string `json:"outputIds"`
	LedgerIndex uint32  `json:"ledgerIndex"`
}

// MessageMetadata is the decoded body of GET /api/v1/messages/{id}/metadata.
type MessageMetadata struct {
	MessageID        string `json:"messageId"`
	Parent1MessageID string `json:"parent1MessageId"`
	Parent2MessageID string `json:"parent2MessageId"`
	IsSolid          bool   `json:"isSolid"`

	// ReferencedByMilestoneIndex is nil when the message has not yet been
	// referenced by a milestone; retry.Controller treats a non-nil value
	// as AlreadyConfirmed regardless of its numeric value (spec.md §4.6
	// step 2).
	ReferencedByMilestoneIndex *uint32 `json:"referencedByMilestoneIndex"`
	MilestoneIndex             uint32  `json:"milestoneIndex,omitempty"`
	LedgerInclusionState       string  `json:"ledgerInclusionState,omitempty"`
	ShouldPromote              bool    `json:"shouldPromote,omitempty"`
	ShouldReattach             bool    `json:"shouldReattach,omitempty"`
}

// MessageChildren is the decoded body of GET /api/v1/messages/{id}/children.
type MessageChildren struct {
	MessageID  string   `json:"messageId"`
	ChildrenMessageIds []string `json:"childrenMessageIds"`
}

// Milestone is the decoded body of GET /api/v1/milestones/{index}.
type Milestone struct {
	Index     uint32 `json:"index"`
	MessageID string `json:"messageId"`
	Timestamp int64  `json:"timestamp"`
}
