package wallet

import (
	"context"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// Connector bridges to the user's wallet extension. The concrete bridge
// lives outside this process (browser side); everything here programs
// against the interface so tests can substitute fakes.
type Connector interface {
	Enable(ctx context.Context, walletName string) (Handle, error)
}

// Handle is an enabled wallet: address queries, signing and submission.
type Handle interface {
	GetNetworkID(ctx context.Context) (int, error)
	GetUtxos(ctx context.Context) ([]types.Utxo, error)
	GetCollateral(ctx context.Context) ([]types.Utxo, error)
	GetChangeAddress(ctx context.Context) (string, error)
	GetRewardAddresses(ctx context.Context) ([]string, error)
	SignData(ctx context.Context, payload []byte) (publicKey, signature []byte, err error)
	SignTx(ctx context.Context, unsignedTx []byte) ([]byte, error)
	SubmitTx(ctx context.Context, signedTx []byte) (string, error)
}
