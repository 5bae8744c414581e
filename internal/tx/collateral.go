package tx

import (
	"fmt"
	"sort"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// SelectCollateral picks the collateral input for a script-spending build:
// the minimum-quantity lovelace-only output at or above the threshold.
// Ascending sort then first match, so the choice is deterministic and
// wastes as little as possible. Ties break on output reference.
func SelectCollateral(utxos []types.Utxo, minQuantity uint64) (*types.Utxo, error) {
	candidates := make([]types.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.IsLovelaceOnly() && u.Lovelace() >= minQuantity {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no lovelace-only utxo >= %d: %w", minQuantity, types.ErrNoCollateral)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Lovelace() != candidates[j].Lovelace() {
			return candidates[i].Lovelace() < candidates[j].Lovelace()
		}
		return candidates[i].OutRef() < candidates[j].OutRef()
	})
	picked := candidates[0]
	return &picked, nil
}

// selectFunding picks the smallest spendable output covering amount,
// skipping the collateral input so spend and collateral never overlap.
func selectFunding(utxos []types.Utxo, amount uint64, collateral *types.Utxo) (*types.Utxo, error) {
	candidates := make([]types.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if collateral != nil && u.OutRef() == collateral.OutRef() {
			continue
		}
		if u.Lovelace() >= amount {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no utxo covers %d lovelace: %w", amount, types.ErrNoUtxos)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Lovelace() != candidates[j].Lovelace() {
			return candidates[i].Lovelace() < candidates[j].Lovelace()
		}
		return candidates[i].OutRef() < candidates[j].OutRef()
	})
	picked := candidates[0]
	return &picked, nil
}
