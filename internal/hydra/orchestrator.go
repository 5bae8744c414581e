package hydra

import (
	"context"
	"fmt"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
)

// Orchestrator drives the head through its lifecycle. Each transition
// issues one command and then waits for the first of a specific tagged
// message or a specific status value; the waiter unsubscribes on settle so
// late events are no-ops. Every wait is bounded by the configured timeout.
type Orchestrator struct {
	client  ChannelClient
	st      *state.State
	timeout time.Duration
}

func NewOrchestrator(client ChannelClient, st *state.State, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		client:  client,
		st:      st,
		timeout: timeout,
	}
}

// Status reports the lifecycle state for display. Never an error: an
// unreachable node reads as IDLE.
func (o *Orchestrator) Status(ctx context.Context) types.ChannelStatus {
	return o.client.GetStatus(ctx)
}

// Open initializes the head and waits for the node to acknowledge.
func (o *Orchestrator) Open(ctx context.Context) error {
	if err := o.client.Connect(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	if err := o.client.Init(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	return o.awaitFirst(ctx, TagHeadIsInitializing, types.StatusInitializing)
}

// Commit drafts the layer-1 transaction committing the given outputs into
// the initializing head. The draft goes back to the wallet for signing;
// the head reaches OPEN once every party's commit lands.
func (o *Orchestrator) Commit(ctx context.Context, utxos []types.Utxo) ([]byte, error) {
	draft, err := o.client.DraftCommitTx(ctx, utxos)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	return draft, nil
}

// Submit sends a signed transaction into the head and waits for it to land
// in a confirmed snapshot.
func (o *Orchestrator) Submit(ctx context.Context, signedTx []byte) error {
	if err := o.client.NewTx(ctx, signedTx); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	if err := o.awaitFirst(ctx, TagSnapshotConfirmed, ""); err != nil {
		return err
	}
	o.st.EventBus.Publish(state.TxSubmitted, struct{}{})
	return nil
}

// Finalize settles the head back onto layer-1 from wherever it currently
// is. Close, fanout-wait and fanout form a strictly ordered suffix of the
// lifecycle; the dispatch resumes at the step matching the current status
// rather than always running all three.
func (o *Orchestrator) Finalize(ctx context.Context) error {
	status := o.client.GetStatus(ctx)
	log.Infof("Finalize dispatch from head status %s", status)

	switch status {
	case types.StatusOpen:
		if err := o.closeHead(ctx); err != nil {
			return err
		}
		if err := o.awaitFanoutPossible(ctx); err != nil {
			return err
		}
		return o.fanout(ctx)
	case types.StatusClosed:
		if err := o.awaitFanoutPossible(ctx); err != nil {
			return err
		}
		return o.fanout(ctx)
	case types.StatusFanoutPossible:
		return o.fanout(ctx)
	default:
		log.Debugf("Finalize is a no-op from status %s", status)
		return nil
	}
}

func (o *Orchestrator) closeHead(ctx context.Context) error {
	if err := o.client.Close(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	return o.awaitFirst(ctx, TagHeadIsClosed, types.StatusClosed)
}

func (o *Orchestrator) awaitFanoutPossible(ctx context.Context) error {
	return o.awaitFirst(ctx, TagReadyToFanout, types.StatusFanoutPossible)
}

func (o *Orchestrator) fanout(ctx context.Context) error {
	if err := o.client.Fanout(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrChannelCommandFailed)
	}
	return o.awaitFirst(ctx, TagHeadIsFinalized, types.StatusFinal)
}

// awaitFirst settles on whichever arrives first: the wanted message tag or
// the wanted status. A failure tag from the node rejects the wait; nothing
// arriving within the timeout rejects with ErrTimeout. Both subscriptions
// are dropped on return, so a late second event cannot double-settle.
func (o *Orchestrator) awaitFirst(ctx context.Context, wantTag string, wantStatus types.ChannelStatus) error {
	msgCh := make(chan interface{}, state.HEAD_MSG_CHAN_LENGTH)
	statusCh := make(chan interface{}, state.HEAD_MSG_CHAN_LENGTH)
	o.st.EventBus.Subscribe(state.HeadMessage, msgCh)
	o.st.EventBus.Subscribe(state.HeadStatusChanged, statusCh)
	defer o.st.EventBus.Unsubscribe(state.HeadMessage, msgCh)
	defer o.st.EventBus.Unsubscribe(state.HeadStatusChanged, statusCh)

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-msgCh:
			msg, ok := ev.(Message)
			if !ok {
				continue
			}
			switch msg.Tag {
			case wantTag:
				return nil
			case TagCommandFailed, TagPostTxFailed:
				return fmt.Errorf("head rejected command while waiting for %s: %w", wantTag, types.ErrChannelCommandFailed)
			}
		case ev := <-statusCh:
			status, ok := ev.(types.ChannelStatus)
			if ok && wantStatus != "" && status == wantStatus {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("no %s after %v: %w", wantTag, o.timeout, types.ErrTimeout)
		}
	}
}
