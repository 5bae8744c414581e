package state

import (
	"sync"

	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
)

// State is the process-wide shared view: the head lifecycle status as last
// reported by the head node, and the wallet session snapshot. All mutation
// goes through it so readers never see partial updates.
type State struct {
	EventBus *EventBus

	dbm *db.DatabaseManager

	headMu     sync.RWMutex
	headStatus types.ChannelStatus

	walletMu      sync.RWMutex
	walletSession WalletSessionState
}

// WalletSessionState is the snapshot of the connected signing wallet.
// Invariant: Connected is true iff ChangeAddress is non-empty.
type WalletSessionState struct {
	Connected     bool
	WalletName    string
	ChangeAddress string
	StakeAddress  string
}

func InitializeState(dbm *db.DatabaseManager) *State {
	s := &State{
		EventBus:   NewEventBus(),
		dbm:        dbm,
		headStatus: types.StatusIdle,
	}
	log.Infof("State init on startup, head status: %s", s.headStatus)
	return s
}

// GetHeadStatus reads the last head status from memory.
func (s *State) GetHeadStatus() types.ChannelStatus {
	s.headMu.RLock()
	defer s.headMu.RUnlock()

	return s.headStatus
}

// SetHeadStatus records a status reported by the head node and publishes the
// change. Only the head client calls it with anything other than IDLE.
func (s *State) SetHeadStatus(status types.ChannelStatus) {
	s.headMu.Lock()
	changed := s.headStatus != status
	s.headStatus = status
	s.headMu.Unlock()

	if changed {
		log.Debugf("Head status changed to %s", status)
		s.EventBus.Publish(HeadStatusChanged, status)
	}
}

// GetWalletSession reads the wallet session snapshot from memory.
func (s *State) GetWalletSession() WalletSessionState {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()

	return s.walletSession
}

// SetWalletSession replaces the wallet session snapshot.
func (s *State) SetWalletSession(session WalletSessionState) {
	s.walletMu.Lock()
	s.walletSession = session
	s.walletMu.Unlock()

	if session.Connected {
		s.EventBus.Publish(WalletConnected, session)
	} else {
		s.EventBus.Publish(WalletDisconnected, session)
	}
}

// ClearWalletSession resets the snapshot to disconnected.
func (s *State) ClearWalletSession() {
	s.SetWalletSession(WalletSessionState{})
}
