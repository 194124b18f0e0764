package retry

import (
	"context"
	"encoding/hex"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/xcrypto"
)

// Action is the decision retry(message_id) reaches (spec.md §4.6).
type Action int

const (
	ActionNone Action = iota
	ActionPromote
	ActionReattach
)

// Controller runs the retry/reattach/promote workflow. It never reattaches
// or promotes a message whose metadata indicates confirmation, regardless
// of caller claims (spec.md §4.6's invariant) — the same "resolved" guard
// idiom the teacher uses before acting on a contract resolution.
type Controller struct {
	Chain            *ReattachmentChain
	LocalPoW         bool
	TargetDifficulty int
}

// NewController builds a Controller with a fresh ReattachmentChain.
func NewController(localPoW bool, targetDifficulty int) *Controller {
	return &Controller{
		Chain:            NewReattachmentChain(),
		LocalPoW:         localPoW,
		TargetDifficulty: targetDifficulty,
	}
}

// Decide implements spec.md §4.6 steps 1-5: inspect metadata and report
// what action retry(message_id) would take, without performing it.
func (c *Controller) Decide(ctx context.Context, client *nodeclient.Client, id codec.MessageId) (Action, nodeclient.MessageMetadata, error) {
	meta, err := client.GetMessageMetadata(ctx, idHex(id))
	if err != nil {
		return ActionNone, meta, err
	}

	if meta.ReferencedByMilestoneIndex != nil {
		return ActionNone, meta, iotaerr.New(iotaerr.KindAlreadyConfirmed, "message already confirmed")
	}
	if meta.ShouldPromote {
		return ActionPromote, meta, nil
	}
	if meta.ShouldReattach {
		return ActionReattach, meta, nil
	}
	return ActionNone, meta, iotaerr.New(iotaerr.KindNoActionNeeded, "no retry action needed")
}

// Retry runs Decide and then performs whatever action it names.
func (c *Controller) Retry(ctx context.Context, client *nodeclient.Client, id codec.MessageId) (codec.MessageId, codec.Message, error) {
	action, _, err := c.Decide(ctx, client, id)
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	if action == ActionPromote {
		return c.Promote(ctx, client, id)
	}
	return c.Reattach(ctx, client, id)
}

// Reattach re-posts the original message body under fresh tips, recording
// the new id in the ReattachmentChain under the original (spec.md §4.6).
func (c *Controller) Reattach(ctx context.Context, client *nodeclient.Client, id codec.MessageId) (codec.MessageId, codec.Message, error) {
	if err := c.rejectIfConfirmed(ctx, client, id); err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	original, err := client.GetMessageRaw(ctx, idHex(id))
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	tips, err := client.GetTips(ctx)
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	msg := codec.Message{Parent1: tips.Parent1, Parent2: tips.Parent2, Payload: original.Payload}
	newID, err := c.powAndPost(ctx, client, &msg)
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	c.Chain.Append(id, newID)
	log.Infof("reattached %s as %s", idHex(id), idHex(newID))
	return newID, msg, nil
}

// Promote posts an empty "PROMOTE" indexation message parented on the
// original message and a fresh tip (spec.md §4.6).
func (c *Controller) Promote(ctx context.Context, client *nodeclient.Client, id codec.MessageId) (codec.MessageId, codec.Message, error) {
	if err := c.rejectIfConfirmed(ctx, client, id); err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	tips, err := client.GetTips(ctx)
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}

	msg := codec.Message{
		Parent1: id,
		Parent2: tips.Parent1,
		Payload: codec.Indexation{Index: "PROMOTE"},
	}
	newID, err := c.powAndPost(ctx, client, &msg)
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}
	log.Infof("promoted %s via %s", idHex(id), idHex(newID))
	return newID, msg, nil
}

func (c *Controller) rejectIfConfirmed(ctx context.Context, client *nodeclient.Client, id codec.MessageId) error {
	meta, err := client.GetMessageMetadata(ctx, idHex(id))
	if err != nil {
		return err
	}
	if meta.ReferencedByMilestoneIndex != nil {
		return iotaerr.New(iotaerr.KindAlreadyConfirmed, "message already confirmed")
	}
	return nil
}

func (c *Controller) powAndPost(ctx context.Context, client *nodeclient.Client, msg *codec.Message) (codec.MessageId, error) {
	encoded, err := codec.EncodeMessage(*msg)
	if err != nil {
		return codec.MessageId{}, err
	}

	if c.LocalPoW {
		nonce, err := xcrypto.ProofOfWork(ctx, encoded, c.TargetDifficulty)
		if err != nil {
			if ctx.Err() != nil {
				return codec.MessageId{}, iotaerr.Wrap(iotaerr.KindCancelled, ctx.Err())
			}
			return codec.MessageId{}, err
		}
		msg.Nonce = nonce
		return client.PostMessage(ctx, encoded, false)
	}
	return client.PostMessage(ctx, encoded, true)
}

func idHex(id codec.MessageId) string {
	return hex.EncodeToString(id[:])
}
