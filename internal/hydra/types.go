package hydra

import (
	"context"
	"encoding/json"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// Tags of the head node's server output messages that drive the lifecycle.
const (
	TagGreetings          = "Greetings"
	TagHeadIsInitializing = "HeadIsInitializing"
	TagCommitted          = "Committed"
	TagHeadIsOpen         = "HeadIsOpen"
	TagHeadIsClosed       = "HeadIsClosed"
	TagHeadIsAborted      = "HeadIsAborted"
	TagReadyToFanout      = "ReadyToFanout"
	TagHeadIsFinalized    = "HeadIsFinalized"
	TagSnapshotConfirmed  = "SnapshotConfirmed"
	TagTxValid            = "TxValid"
	TagTxInvalid          = "TxInvalid"
	TagCommandFailed      = "CommandFailed"
	TagPostTxFailed       = "PostTxOnChainFailed"
)

// Message is one tagged server output from the head node.
type Message struct {
	Tag        string `json:"tag"`
	HeadStatus string `json:"headStatus,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ChannelClient is the connection to the head coordination node: command
// dispatch plus the message and status feeds it publishes on the event bus.
type ChannelClient interface {
	Connect(ctx context.Context) error
	GetStatus(ctx context.Context) types.ChannelStatus
	Init(ctx context.Context) error
	Close(ctx context.Context) error
	Fanout(ctx context.Context) error
	NewTx(ctx context.Context, signedTx []byte) error
	DraftCommitTx(ctx context.Context, utxos []types.Utxo) ([]byte, error)
	SnapshotUTxOs(ctx context.Context, address string) ([]types.Utxo, error)
}

// statusForTag maps lifecycle messages onto the status they imply. Only
// these events move the recorded status.
func statusForTag(m Message) (types.ChannelStatus, bool) {
	switch m.Tag {
	case TagGreetings:
		return types.ParseChannelStatus(m.HeadStatus), true
	case TagHeadIsInitializing:
		return types.StatusInitializing, true
	case TagHeadIsOpen:
		return types.StatusOpen, true
	case TagHeadIsClosed:
		return types.StatusClosed, true
	case TagReadyToFanout:
		return types.StatusFanoutPossible, true
	case TagHeadIsFinalized:
		return types.StatusFinal, true
	case TagHeadIsAborted:
		return types.StatusIdle, true
	default:
		return "", false
	}
}
