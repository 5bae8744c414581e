package types

import "errors"

// Error kinds surfaced by the session, composer and head orchestration
// layers. Callers match with errors.Is; wrap sites add context via %w.
var (
	ErrNetworkMismatch        = errors.New("wallet network id does not match configured network")
	ErrAddressUnavailable     = errors.New("wallet returned no usable address")
	ErrSessionAddressMismatch = errors.New("session address does not match wallet address")
	ErrNoUtxos                = errors.New("no utxos available")
	ErrNoCollateral           = errors.New("no qualifying collateral utxo")
	ErrNoWalletAddress        = errors.New("wallet change address unavailable")
	ErrValidatorNotFound      = errors.New("script validator not found in blueprint")
	ErrDatumDecode            = errors.New("datum does not match expected shape")
	ErrChannelCommandFailed   = errors.New("head command failed")
	ErrTimeout                = errors.New("timed out waiting for head event")
)
