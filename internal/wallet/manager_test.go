package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/hydrafund/hydrafund-node/internal/auth"
	"github.com/hydrafund/hydrafund-node/internal/config"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

type stubHandle struct {
	networkID     int
	changeAddress string
	rewards       []string
	utxos         []types.Utxo
	signer        ed25519.PrivateKey
	publicKey     ed25519.PublicKey
}

func (h *stubHandle) GetNetworkID(ctx context.Context) (int, error) { return h.networkID, nil }
func (h *stubHandle) GetUtxos(ctx context.Context) ([]types.Utxo, error) {
	return h.utxos, nil
}
func (h *stubHandle) GetCollateral(ctx context.Context) ([]types.Utxo, error) {
	return nil, nil
}
func (h *stubHandle) GetChangeAddress(ctx context.Context) (string, error) {
	return h.changeAddress, nil
}
func (h *stubHandle) GetRewardAddresses(ctx context.Context) ([]string, error) {
	return h.rewards, nil
}
func (h *stubHandle) SignData(ctx context.Context, payload []byte) ([]byte, []byte, error) {
	if h.signer == nil {
		return nil, nil, fmt.Errorf("no signing key configured")
	}
	return h.publicKey, ed25519.Sign(h.signer, payload), nil
}
func (h *stubHandle) SignTx(ctx context.Context, unsignedTx []byte) ([]byte, error) {
	return unsignedTx, nil
}
func (h *stubHandle) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	return "aa00", nil
}

type stubConnector struct {
	handle   Handle
	failures int
	calls    int
}

func (c *stubConnector) Enable(ctx context.Context, walletName string) (Handle, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, fmt.Errorf("wallet extension unavailable")
	}
	return c.handle, nil
}

func encodeTestAddress(t *testing.T, header byte, hrp string, body []byte) string {
	t.Helper()
	payload := append([]byte{header}, body...)
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(hrp, data)
	require.NoError(t, err)
	return addr
}

type managerEnv struct {
	dbm     *db.DatabaseManager
	st      *state.State
	authSvc *auth.Service
	handle  *stubHandle
	conn    *stubConnector
	manager *Manager
}

// newManagerEnv wires a manager around a stub wallet whose signing key
// actually owns the payment credential of its change address.
func newManagerEnv(t *testing.T) *managerEnv {
	t.Helper()
	config.AppConfig.DbDir = t.TempDir()
	config.AppConfig.NetworkID = 0

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	credHash, err := blake2b.New(28, nil)
	require.NoError(t, err)
	credHash.Write(publicKey)
	paymentHash := credHash.Sum(nil)

	changeAddress := encodeTestAddress(t, 0x60, "addr_test", paymentHash)
	stakeAddress := encodeTestAddress(t, 0xe0, "stake_test", bytes.Repeat([]byte{0x07}, 28))

	handle := &stubHandle{
		networkID:     0,
		changeAddress: changeAddress,
		rewards:       []string{stakeAddress},
		signer:        privateKey,
		publicKey:     publicKey,
	}
	conn := &stubConnector{handle: handle}

	dbm := db.NewDatabaseManager()
	st := state.InitializeState(dbm)
	authSvc := auth.NewService(dbm, "test-secret", time.Hour, time.Minute)
	manager := NewManager(conn, authSvc, dbm, st)

	return &managerEnv{
		dbm:     dbm,
		st:      st,
		authSvc: authSvc,
		handle:  handle,
		conn:    conn,
		manager: manager,
	}
}

func TestConnectChallengeMintsToken(t *testing.T) {
	env := newManagerEnv(t)

	token, err := env.manager.Connect(context.Background(), nil, "nami")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := env.authSvc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, env.handle.changeAddress, session.Address)
	assert.Equal(t, "nami", session.WalletName)

	snapshot := env.manager.Session()
	assert.True(t, snapshot.Connected)
	assert.Equal(t, env.handle.changeAddress, snapshot.ChangeAddress)
	assert.Equal(t, snapshot, env.st.GetWalletSession())
}

func TestConnectWithExistingSessionSkipsChallenge(t *testing.T) {
	env := newManagerEnv(t)
	env.handle.signer = nil

	existing := &auth.Session{Address: env.handle.changeAddress, WalletName: "nami"}
	token, err := env.manager.Connect(context.Background(), existing, "nami")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.True(t, env.manager.Session().Connected)
}

func TestConnectNetworkMismatchRollsBack(t *testing.T) {
	env := newManagerEnv(t)
	env.handle.networkID = 1

	_, err := env.manager.Connect(context.Background(), nil, "nami")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNetworkMismatch)

	assert.False(t, env.manager.Session().Connected)
	assert.False(t, env.st.GetWalletSession().Connected)
	_, err = env.manager.Handle()
	assert.ErrorIs(t, err, types.ErrNoWalletAddress)
}

func TestConnectAddressUnavailable(t *testing.T) {
	env := newManagerEnv(t)
	env.handle.changeAddress = ""

	_, err := env.manager.Connect(context.Background(), nil, "nami")
	assert.ErrorIs(t, err, types.ErrAddressUnavailable)
	assert.False(t, env.manager.Session().Connected)
}

func TestConnectSessionAddressMismatch(t *testing.T) {
	env := newManagerEnv(t)

	existing := &auth.Session{Address: "addr_test1someoneelse", WalletName: "nami"}
	_, err := env.manager.Connect(context.Background(), existing, "nami")
	assert.ErrorIs(t, err, types.ErrSessionAddressMismatch)
	assert.False(t, env.manager.Session().Connected)
}

func TestDisconnectIdempotent(t *testing.T) {
	env := newManagerEnv(t)
	_, err := env.manager.Connect(context.Background(), nil, "nami")
	require.NoError(t, err)

	env.manager.Disconnect()
	env.manager.Disconnect()

	assert.False(t, env.manager.Session().Connected)
	_, err = env.manager.Handle()
	assert.ErrorIs(t, err, types.ErrNoWalletAddress)
}

func TestSyncWithSessionNilClears(t *testing.T) {
	env := newManagerEnv(t)
	_, err := env.manager.Connect(context.Background(), nil, "nami")
	require.NoError(t, err)

	env.manager.SyncWithSession(context.Background(), nil)
	assert.False(t, env.manager.Session().Connected)
	assert.False(t, env.st.GetWalletSession().Connected)
}

func TestSyncWithSessionMatchIsNoop(t *testing.T) {
	env := newManagerEnv(t)
	_, err := env.manager.Connect(context.Background(), nil, "nami")
	require.NoError(t, err)
	enables := env.conn.calls

	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address:    env.handle.changeAddress,
		WalletName: "nami",
	})
	assert.Equal(t, enables, env.conn.calls)
	assert.True(t, env.manager.Session().Connected)
}

func TestSyncWithSessionSilentReconnect(t *testing.T) {
	env := newManagerEnv(t)

	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address:    env.handle.changeAddress,
		WalletName: "nami",
	})

	snapshot := env.manager.Session()
	assert.True(t, snapshot.Connected)
	assert.Equal(t, env.handle.changeAddress, snapshot.ChangeAddress)
}

func TestSyncWithSessionUsesPersistedWalletLink(t *testing.T) {
	env := newManagerEnv(t)
	_, err := env.manager.Connect(context.Background(), nil, "nami")
	require.NoError(t, err)
	env.manager.Disconnect()

	// wallet name omitted from the session, must come from the stored link
	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address: env.handle.changeAddress,
	})
	assert.True(t, env.manager.Session().Connected)
}

func TestSyncWithSessionAddressDriftClearsSession(t *testing.T) {
	env := newManagerEnv(t)

	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address:    "addr_test1someoneelse",
		WalletName: "nami",
	})

	assert.False(t, env.manager.Session().Connected)
	assert.False(t, env.st.GetWalletSession().Connected)
}

func TestSyncWithSessionRetriesEnable(t *testing.T) {
	env := newManagerEnv(t)
	env.conn.failures = 2

	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address:    env.handle.changeAddress,
		WalletName: "nami",
	})

	assert.Equal(t, 3, env.conn.calls)
	assert.True(t, env.manager.Session().Connected)
}

func TestSyncWithSessionGivesUpQuietly(t *testing.T) {
	env := newManagerEnv(t)
	env.conn.failures = reconnectAttempts + 1

	env.manager.SyncWithSession(context.Background(), &auth.Session{
		Address:    env.handle.changeAddress,
		WalletName: "nami",
	})

	assert.Equal(t, reconnectAttempts, env.conn.calls)
	assert.False(t, env.manager.Session().Connected)
}
