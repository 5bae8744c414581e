package tx

import (
	"context"
	"fmt"
	"sync"

	"github.com/hydrafund/hydrafund-node/internal/provider"
	"github.com/hydrafund/hydrafund-node/internal/types"
	"github.com/hydrafund/hydrafund-node/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// SnapshotSource is the head's view of unspent outputs, used by the
// layer-2 build variants instead of the layer-1 indexer.
type SnapshotSource interface {
	SnapshotUTxOs(ctx context.Context, address string) ([]types.Utxo, error)
}

// Composer assembles unsigned drafts for the five campaign operations.
// Every build runs the same preconditions in order: wallet UTXO fetch,
// collateral selection, change address. Builds against one contract
// address are serialized so two local callers cannot race to spend the
// same locked output; cross-process races settle on the ledger.
type Composer struct {
	provider        provider.Client
	wallet          *wallet.Manager
	head            SnapshotSource
	validator       *Validator
	contractAddress string
	networkID       int
	minCollateral   uint64

	buildMu sync.Mutex
}

func NewComposer(p provider.Client, w *wallet.Manager, head SnapshotSource, validator *Validator, contractAddress string, networkID int, minCollateral uint64) *Composer {
	return &Composer{
		provider:        p,
		wallet:          w,
		head:            head,
		validator:       validator,
		contractAddress: contractAddress,
		networkID:       networkID,
		minCollateral:   minCollateral,
	}
}

type buildContext struct {
	handle        wallet.Handle
	utxos         []types.Utxo
	collateral    types.Utxo
	changeAddress string
}

// prepare runs the shared preconditions against the wallet's layer-1 view.
// Order matters: an empty wallet must fail before collateral selection.
func (c *Composer) prepare(ctx context.Context) (*buildContext, error) {
	handle, err := c.wallet.Handle()
	if err != nil {
		return nil, err
	}

	utxos, err := handle.GetUtxos(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet utxos: %w", err)
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("wallet is empty: %w", types.ErrNoUtxos)
	}

	collateral, err := c.pickCollateral(ctx, handle, utxos)
	if err != nil {
		return nil, err
	}

	changeAddress, err := handle.GetChangeAddress(ctx)
	if err != nil || changeAddress == "" {
		return nil, fmt.Errorf("change address: %w", types.ErrNoWalletAddress)
	}

	return &buildContext{
		handle:        handle,
		utxos:         utxos,
		collateral:    *collateral,
		changeAddress: changeAddress,
	}, nil
}

// pickCollateral reuses the wallet-reported collateral when present and
// falls back to deterministic selection. A wallet with nothing qualifying
// fails the build; proceeding without collateral is never valid.
func (c *Composer) pickCollateral(ctx context.Context, handle wallet.Handle, utxos []types.Utxo) (*types.Utxo, error) {
	reported, err := handle.GetCollateral(ctx)
	if err == nil && len(reported) > 0 {
		return &reported[0], nil
	}
	if err != nil {
		log.Debugf("Wallet collateral query failed, selecting from utxo set: %v", err)
	}
	return SelectCollateral(utxos, c.minCollateral)
}

// callerCredentials resolves the connected wallet's on-chain identity.
func (c *Composer) callerCredentials(changeAddress string) (Credentials, error) {
	info, err := types.DecodeAddress(changeAddress)
	if err != nil {
		return Credentials{}, fmt.Errorf("decode change address: %w", err)
	}
	creds := Credentials{PaymentKeyHash: info.PaymentKeyHash, StakeKeyHash: info.StakeKeyHash}

	if session := c.wallet.Session(); session.StakeAddress != "" {
		if stake, err := types.DecodeRewardAddress(session.StakeAddress); err == nil {
			creds.StakeKeyHash = stake
		}
	}
	if creds.StakeKeyHash == nil {
		creds.StakeKeyHash = []byte{}
	}
	return creds, nil
}

// Contribute builds the layer-1 contribution. With a prior locked output at
// the contract address it spends it via the update branch and re-locks the
// combined amount with the caller appended to the participant list; without
// one it locks a fresh output with a fresh datum.
func (c *Composer) Contribute(ctx context.Context, quantity, required uint64, destination string) (*Draft, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	bctx, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	amount := quantity * types.LovelaceFactor
	requiredAmount := required * types.LovelaceFactor

	caller, err := c.callerCredentials(bctx.changeAddress)
	if err != nil {
		return nil, err
	}
	destInfo, err := types.DecodeAddress(destination)
	if err != nil {
		return nil, fmt.Errorf("decode destination address: %w", err)
	}
	destCreds := Credentials{PaymentKeyHash: destInfo.PaymentKeyHash, StakeKeyHash: destInfo.StakeKeyHash}
	if destCreds.StakeKeyHash == nil {
		destCreds.StakeKeyHash = []byte{}
	}

	contractUtxos, err := c.provider.FetchAddressUTxOs(ctx, c.contractAddress, "")
	if err != nil {
		return nil, fmt.Errorf("fetch contract utxos: %w", err)
	}

	funding, err := selectFunding(bctx.utxos, amount, &bctx.collateral)
	if err != nil {
		return nil, err
	}

	var inputs []Input
	var outputs []Output

	if len(contractUtxos) > 0 {
		locked := contractUtxos[0]
		datum, err := DecodeFundDatum(locked.Datum)
		if err != nil {
			return nil, fmt.Errorf("locked output %s: %w", locked.OutRef(), err)
		}
		datum.Participants = append(datum.Participants, Participant{Credentials: caller, Amount: amount})

		redeemer, err := EncodeRedeemer(RedeemerUpdate)
		if err != nil {
			return nil, err
		}
		newDatum, err := EncodeFundDatum(*datum)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, scriptInput(locked, redeemer), walletInput(*funding))
		outputs = append(outputs, Output{
			Address: c.contractAddress,
			Amount:  locked.Lovelace() + amount,
			Datum:   newDatum,
		})
		log.Infof("Composed contribute update, locked %s, adding %d lovelace", locked.OutRef(), amount)
	} else {
		datum, err := EncodeFundDatum(FundDatum{
			Participants: []Participant{{Credentials: caller, Amount: amount}},
			Destination:  destCreds,
			Required:     requiredAmount,
		})
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, walletInput(*funding))
		outputs = append(outputs, Output{
			Address: c.contractAddress,
			Amount:  amount,
			Datum:   datum,
		})
		log.Infof("Composed fresh contribute lock of %d lovelace", amount)
	}

	return &Draft{
		NetworkID:       c.networkID,
		Inputs:          inputs,
		Outputs:         outputs,
		CollateralHash:  bctx.collateral.TxHash,
		CollateralIndex: bctx.collateral.OutIndex,
		RequiredSigners: [][]byte{caller.PaymentKeyHash},
		ScriptCode:      c.validator.CompiledCode,
		ChangeAddress:   bctx.changeAddress,
	}, nil
}

// Disburse spends the locked output via the finalize branch, sending its
// full value to the caller's own change address.
func (c *Composer) Disburse(ctx context.Context) (*Draft, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	bctx, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	caller, err := c.callerCredentials(bctx.changeAddress)
	if err != nil {
		return nil, err
	}

	contractUtxos, err := c.provider.FetchAddressUTxOs(ctx, c.contractAddress, "")
	if err != nil {
		return nil, fmt.Errorf("fetch contract utxos: %w", err)
	}
	if len(contractUtxos) == 0 {
		return nil, fmt.Errorf("no locked output at contract address: %w", types.ErrNoUtxos)
	}
	locked := contractUtxos[0]

	redeemer, err := EncodeRedeemer(RedeemerFinalize)
	if err != nil {
		return nil, err
	}

	log.Infof("Composed disburse of %s, %d lovelace to %s", locked.OutRef(), locked.Lovelace(), bctx.changeAddress)
	return &Draft{
		NetworkID:       c.networkID,
		Inputs:          []Input{scriptInput(locked, redeemer)},
		Outputs:         []Output{{Address: bctx.changeAddress, Amount: locked.Lovelace()}},
		CollateralHash:  bctx.collateral.TxHash,
		CollateralIndex: bctx.collateral.OutIndex,
		RequiredSigners: [][]byte{caller.PaymentKeyHash},
		ScriptCode:      c.validator.CompiledCode,
		ChangeAddress:   bctx.changeAddress,
	}, nil
}

// headContext runs the shared preconditions against the head's UTXO view.
func (c *Composer) headContext(ctx context.Context) (*buildContext, error) {
	session := c.wallet.Session()
	if session.ChangeAddress == "" {
		return nil, types.ErrNoWalletAddress
	}

	utxos, err := c.head.SnapshotUTxOs(ctx, session.ChangeAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch head snapshot: %w", err)
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("no funds in head for %s: %w", session.ChangeAddress, types.ErrNoUtxos)
	}

	collateral, err := SelectCollateral(utxos, c.minCollateral)
	if err != nil {
		return nil, err
	}

	return &buildContext{
		utxos:         utxos,
		collateral:    *collateral,
		changeAddress: session.ChangeAddress,
	}, nil
}

// Lock locks the caller's funds at the contract address inside the head,
// with the caller as both sole participant and destination.
func (c *Composer) Lock(ctx context.Context, quantity uint64) (*Draft, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	bctx, err := c.headContext(ctx)
	if err != nil {
		return nil, err
	}
	caller, err := c.callerCredentials(bctx.changeAddress)
	if err != nil {
		return nil, err
	}

	amount := quantity * types.LovelaceFactor
	funding, err := selectFunding(bctx.utxos, amount, &bctx.collateral)
	if err != nil {
		return nil, err
	}

	datum, err := EncodeFundDatum(FundDatum{
		Participants: []Participant{{Credentials: caller, Amount: amount}},
		Destination:  caller,
		Required:     amount,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Composed head lock of %d lovelace from %s", amount, funding.OutRef())
	return &Draft{
		NetworkID:       c.networkID,
		Inputs:          []Input{walletInput(*funding)},
		Outputs:         []Output{{Address: c.contractAddress, Amount: amount, Datum: datum}},
		CollateralHash:  bctx.collateral.TxHash,
		CollateralIndex: bctx.collateral.OutIndex,
		RequiredSigners: [][]byte{caller.PaymentKeyHash},
		ChangeAddress:   bctx.changeAddress,
	}, nil
}

// Unlock redeems the caller's locked share inside the head via the update
// branch, re-locking the remainder for the other participants. When the
// caller was the last participant nothing is re-locked.
func (c *Composer) Unlock(ctx context.Context) (*Draft, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	bctx, err := c.headContext(ctx)
	if err != nil {
		return nil, err
	}
	caller, err := c.callerCredentials(bctx.changeAddress)
	if err != nil {
		return nil, err
	}

	locked, datum, err := c.lockedHeadOutput(ctx)
	if err != nil {
		return nil, err
	}

	var share uint64
	remaining := make([]Participant, 0, len(datum.Participants))
	for _, p := range datum.Participants {
		if string(p.Credentials.PaymentKeyHash) == string(caller.PaymentKeyHash) {
			share += p.Amount
			continue
		}
		remaining = append(remaining, p)
	}
	if share == 0 {
		return nil, fmt.Errorf("caller holds no locked share in %s", locked.OutRef())
	}

	redeemer, err := EncodeRedeemer(RedeemerUpdate)
	if err != nil {
		return nil, err
	}

	outputs := []Output{{Address: bctx.changeAddress, Amount: share}}
	if len(remaining) > 0 {
		datum.Participants = remaining
		newDatum, err := EncodeFundDatum(*datum)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, Output{
			Address: c.contractAddress,
			Amount:  locked.Lovelace() - share,
			Datum:   newDatum,
		})
	}

	log.Infof("Composed head unlock of %d lovelace from %s", share, locked.OutRef())
	return &Draft{
		NetworkID:       c.networkID,
		Inputs:          []Input{scriptInput(*locked, redeemer)},
		Outputs:         outputs,
		CollateralHash:  bctx.collateral.TxHash,
		CollateralIndex: bctx.collateral.OutIndex,
		RequiredSigners: [][]byte{caller.PaymentKeyHash},
		ScriptCode:      c.validator.CompiledCode,
		ChangeAddress:   bctx.changeAddress,
	}, nil
}

// Remove clears the locked output inside the head via the finalize branch,
// sending everything to the caller.
func (c *Composer) Remove(ctx context.Context) (*Draft, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	bctx, err := c.headContext(ctx)
	if err != nil {
		return nil, err
	}
	caller, err := c.callerCredentials(bctx.changeAddress)
	if err != nil {
		return nil, err
	}

	locked, _, err := c.lockedHeadOutput(ctx)
	if err != nil {
		return nil, err
	}

	redeemer, err := EncodeRedeemer(RedeemerFinalize)
	if err != nil {
		return nil, err
	}

	log.Infof("Composed head remove of %s, %d lovelace", locked.OutRef(), locked.Lovelace())
	return &Draft{
		NetworkID:       c.networkID,
		Inputs:          []Input{scriptInput(*locked, redeemer)},
		Outputs:         []Output{{Address: bctx.changeAddress, Amount: locked.Lovelace()}},
		CollateralHash:  bctx.collateral.TxHash,
		CollateralIndex: bctx.collateral.OutIndex,
		RequiredSigners: [][]byte{caller.PaymentKeyHash},
		ScriptCode:      c.validator.CompiledCode,
		ChangeAddress:   bctx.changeAddress,
	}, nil
}

func (c *Composer) lockedHeadOutput(ctx context.Context) (*types.Utxo, *FundDatum, error) {
	contractUtxos, err := c.head.SnapshotUTxOs(ctx, c.contractAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch head contract snapshot: %w", err)
	}
	if len(contractUtxos) == 0 {
		return nil, nil, fmt.Errorf("no locked output at contract address in head: %w", types.ErrNoUtxos)
	}
	locked := contractUtxos[0]
	datum, err := DecodeFundDatum(locked.Datum)
	if err != nil {
		return nil, nil, fmt.Errorf("locked output %s: %w", locked.OutRef(), err)
	}
	return &locked, datum, nil
}
