package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/auth"
	"github.com/hydrafund/hydrafund-node/internal/config"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const reconnectAttempts = 3

// Manager is the single source of truth for which wallet, if any, is
// connected and authorized, kept consistent with the auth session. All
// wallet-extension failures are contained here: a failed Connect always
// lands back in the fully disconnected state, never a partial one.
type Manager struct {
	connector Connector
	authSvc   *auth.Service
	dbm       *db.DatabaseManager
	state     *state.State

	mu      sync.Mutex
	handle  Handle
	session state.WalletSessionState
}

func NewManager(connector Connector, authSvc *auth.Service, dbm *db.DatabaseManager, st *state.State) *Manager {
	return &Manager{
		connector: connector,
		authSvc:   authSvc,
		dbm:       dbm,
		state:     st,
	}
}

// Session returns the current wallet session snapshot.
func (m *Manager) Session() state.WalletSessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Handle returns the enabled wallet handle, or an error when disconnected.
func (m *Manager) Handle() (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil, types.ErrNoWalletAddress
	}
	return m.handle, nil
}

// Connect enables the named wallet and reconciles it with the auth session.
// Without an existing session it runs the nonce challenge and returns the
// minted token; with one it requires the recorded address to match and
// returns "". Any failure rolls the manager back to disconnected.
func (m *Manager) Connect(ctx context.Context, existing *auth.Session, walletName string) (string, error) {
	token, err := m.connect(ctx, existing, walletName)
	if err != nil {
		m.Disconnect()
		log.Warnf("Wallet connect failed, session cleared: %v", err)
		return "", err
	}
	return token, nil
}

func (m *Manager) connect(ctx context.Context, existing *auth.Session, walletName string) (string, error) {
	handle, err := m.connector.Enable(ctx, walletName)
	if err != nil {
		return "", fmt.Errorf("enable wallet %s: %w", walletName, err)
	}

	networkID, err := handle.GetNetworkID(ctx)
	if err != nil {
		return "", fmt.Errorf("query network id: %w", err)
	}
	if networkID != config.AppConfig.NetworkID {
		return "", fmt.Errorf("wallet reports network %d, configured %d: %w",
			networkID, config.AppConfig.NetworkID, types.ErrNetworkMismatch)
	}

	changeAddress, err := handle.GetChangeAddress(ctx)
	if err != nil || changeAddress == "" {
		return "", fmt.Errorf("change address: %w", types.ErrAddressUnavailable)
	}
	rewardAddresses, err := handle.GetRewardAddresses(ctx)
	if err != nil || len(rewardAddresses) == 0 || rewardAddresses[0] == "" {
		return "", fmt.Errorf("reward address: %w", types.ErrAddressUnavailable)
	}
	stakeAddress := rewardAddresses[0]

	var token string
	if existing == nil {
		nonce, err := m.authSvc.IssueNonce(changeAddress)
		if err != nil {
			return "", fmt.Errorf("issue nonce: %w", err)
		}
		publicKey, signature, err := handle.SignData(ctx, []byte(nonce))
		if err != nil {
			return "", fmt.Errorf("sign challenge: %w", err)
		}
		token, err = m.authSvc.Verify(changeAddress, walletName, nonce, publicKey, signature)
		if err != nil {
			return "", fmt.Errorf("establish session: %w", err)
		}
	} else if existing.Address != changeAddress {
		return "", fmt.Errorf("session holds %s, wallet reports %s: %w",
			existing.Address, changeAddress, types.ErrSessionAddressMismatch)
	}

	m.attach(handle, state.WalletSessionState{
		Connected:     true,
		WalletName:    walletName,
		ChangeAddress: changeAddress,
		StakeAddress:  stakeAddress,
	})
	m.persistWalletLink(changeAddress, walletName)

	log.Infof("Wallet %s connected, address %s", walletName, changeAddress)
	return token, nil
}

// Disconnect clears wallet and session state unconditionally. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.session.Connected
	m.handle = nil
	m.session = state.WalletSessionState{}
	m.mu.Unlock()

	if wasConnected {
		log.Info("Wallet disconnected")
	}
	m.state.ClearWalletSession()
}

// SyncWithSession reconciles wallet state after the auth session changed.
// A session without an address clears everything; a session matching the
// live wallet is a no-op; otherwise the last-used wallet is re-enabled
// silently, best effort, with linear backoff between attempts.
func (m *Manager) SyncWithSession(ctx context.Context, session *auth.Session) {
	if session == nil || session.Address == "" {
		m.Disconnect()
		return
	}

	m.mu.Lock()
	if m.session.Connected && m.session.ChangeAddress == session.Address {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	walletName := session.WalletName
	if walletName == "" {
		walletName = m.lookupWalletLink(session.Address)
	}
	if walletName == "" {
		log.Debugf("No wallet link for %s, skip silent reconnect", session.Address)
		return
	}

	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		handle, err := m.connector.Enable(ctx, walletName)
		if err == nil {
			m.adopt(ctx, handle, session, walletName)
			return
		}
		log.Debugf("Silent reconnect of %s attempt %d failed: %v", walletName, attempt, err)
		if attempt < reconnectAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	log.Debugf("Silent reconnect of %s gave up after %d attempts", walletName, reconnectAttempts)
}

// adopt attaches a silently re-enabled wallet, dropping it again if its
// address no longer matches the session.
func (m *Manager) adopt(ctx context.Context, handle Handle, session *auth.Session, walletName string) {
	changeAddress, err := handle.GetChangeAddress(ctx)
	if err != nil || changeAddress == "" {
		log.Debugf("Silent reconnect of %s: change address unavailable", walletName)
		return
	}
	if changeAddress != session.Address {
		log.Debugf("Silent reconnect of %s: address changed, clearing session", walletName)
		m.Disconnect()
		return
	}
	stakeAddress := ""
	if rewards, err := handle.GetRewardAddresses(ctx); err == nil && len(rewards) > 0 {
		stakeAddress = rewards[0]
	}

	m.attach(handle, state.WalletSessionState{
		Connected:     true,
		WalletName:    walletName,
		ChangeAddress: changeAddress,
		StakeAddress:  stakeAddress,
	})
	log.Infof("Wallet %s silently reconnected, address %s", walletName, changeAddress)
}

func (m *Manager) attach(handle Handle, session state.WalletSessionState) {
	m.mu.Lock()
	m.handle = handle
	m.session = session
	m.mu.Unlock()

	m.state.SetWalletSession(session)
}

func (m *Manager) persistWalletLink(address, walletName string) {
	var link db.WalletLink
	err := m.dbm.GetSessionDB().Where("address = ?", address).First(&link).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		log.Warnf("Failed to load wallet link for %s: %v", address, err)
		return
	}
	link.Address = address
	link.WalletName = walletName
	link.UpdatedAt = time.Now()
	if err := m.dbm.GetSessionDB().Save(&link).Error; err != nil {
		log.Warnf("Failed to persist wallet link for %s: %v", address, err)
	}
}

func (m *Manager) lookupWalletLink(address string) string {
	var link db.WalletLink
	if err := m.dbm.GetSessionDB().Where("address = ?", address).First(&link).Error; err != nil {
		return ""
	}
	return link.WalletName
}
