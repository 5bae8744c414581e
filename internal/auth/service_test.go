package auth

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/hydrafund/hydrafund-node/internal/config"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

type authEnv struct {
	svc        *Service
	address    string
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// newAuthEnv generates a signing key and the test-network address owned by
// its payment credential.
func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	config.AppConfig.DbDir = t.TempDir()

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	credHash, err := blake2b.New(28, nil)
	require.NoError(t, err)
	credHash.Write(publicKey)

	payload := append([]byte{0x60}, credHash.Sum(nil)...)
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	address, err := bech32.Encode("addr_test", data)
	require.NoError(t, err)

	dbm := db.NewDatabaseManager()
	return &authEnv{
		svc:        NewService(dbm, "test-secret", time.Hour, time.Minute),
		address:    address,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	env := newAuthEnv(t)

	nonce, err := env.svc.IssueNonce(env.address)
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	signature := ed25519.Sign(env.privateKey, []byte(nonce))
	token, err := env.svc.Verify(env.address, "nami", nonce, env.publicKey, signature)
	require.NoError(t, err)

	session, err := env.svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, env.address, session.Address)
	assert.Equal(t, "nami", session.WalletName)
}

func TestIssueNonceRejectsBadAddress(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.svc.IssueNonce("not-an-address")
	assert.Error(t, err)
}

func TestVerifyRejectsNonceReuse(t *testing.T) {
	env := newAuthEnv(t)

	nonce, err := env.svc.IssueNonce(env.address)
	require.NoError(t, err)
	signature := ed25519.Sign(env.privateKey, []byte(nonce))

	_, err = env.svc.Verify(env.address, "nami", nonce, env.publicKey, signature)
	require.NoError(t, err)

	_, err = env.svc.Verify(env.address, "nami", nonce, env.publicKey, signature)
	assert.ErrorContains(t, err, "already used")
}

func TestVerifyRejectsUnknownNonce(t *testing.T) {
	env := newAuthEnv(t)

	signature := ed25519.Sign(env.privateKey, []byte("made-up"))
	_, err := env.svc.Verify(env.address, "nami", "made-up", env.publicKey, signature)
	assert.ErrorContains(t, err, "unknown nonce")
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	env := newAuthEnv(t)

	nonce, err := env.svc.IssueNonce(env.address)
	require.NoError(t, err)

	// a different key signs a valid signature over the right message
	otherPub, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signature := ed25519.Sign(otherPriv, []byte(nonce))

	_, err = env.svc.Verify(env.address, "nami", nonce, otherPub, signature)
	assert.ErrorContains(t, err, "does not own address credential")
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	env := newAuthEnv(t)

	nonce, err := env.svc.IssueNonce(env.address)
	require.NoError(t, err)
	signature := ed25519.Sign(env.privateKey, []byte(nonce+"tampered"))

	_, err = env.svc.Verify(env.address, "nami", nonce, env.publicKey, signature)
	assert.ErrorContains(t, err, "signature verification failed")
}

func TestVerifyRejectsExpiredNonce(t *testing.T) {
	config.AppConfig.DbDir = t.TempDir()
	dbm := db.NewDatabaseManager()
	svc := NewService(dbm, "test-secret", time.Hour, -time.Minute)

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	credHash, err := blake2b.New(28, nil)
	require.NoError(t, err)
	credHash.Write(publicKey)
	payload := append([]byte{0x60}, credHash.Sum(nil)...)
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	address, err := bech32.Encode("addr_test", data)
	require.NoError(t, err)

	nonce, err := svc.IssueNonce(address)
	require.NoError(t, err)
	signature := ed25519.Sign(privateKey, []byte(nonce))

	_, err = svc.Verify(address, "nami", nonce, publicKey, signature)
	assert.ErrorContains(t, err, "expired")
}

func TestParseTokenRejectsTampering(t *testing.T) {
	env := newAuthEnv(t)

	nonce, err := env.svc.IssueNonce(env.address)
	require.NoError(t, err)
	signature := ed25519.Sign(env.privateKey, []byte(nonce))
	token, err := env.svc.Verify(env.address, "nami", nonce, env.publicKey, signature)
	require.NoError(t, err)

	_, err = env.svc.ParseToken(token + "x")
	assert.Error(t, err)

	_, err = env.svc.ParseToken("not.a.token")
	assert.Error(t, err)
}
