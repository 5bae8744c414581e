package tx

import (
	"testing"

	"github.com/hydrafund/hydrafund-node/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lovelaceUtxo(hash string, index int, quantity uint64) types.Utxo {
	return types.Utxo{
		TxHash:   hash,
		OutIndex: index,
		Amount:   []types.Asset{{Unit: types.LovelaceUnit, Quantity: quantity}},
	}
}

func TestSelectCollateralPicksSmallestQualifying(t *testing.T) {
	multiAsset := lovelaceUtxo("cc", 0, 5_000_000)
	multiAsset.Amount = append(multiAsset.Amount, types.Asset{Unit: "policytoken", Quantity: 3})

	utxos := []types.Utxo{
		lovelaceUtxo("aa", 0, 4_000_000),
		lovelaceUtxo("bb", 1, 7_000_000),
		multiAsset,
		lovelaceUtxo("dd", 2, 5_000_000),
	}

	picked, err := SelectCollateral(utxos, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, "dd#2", picked.OutRef())
	assert.Equal(t, uint64(5_000_000), picked.Lovelace())
}

func TestSelectCollateralTieBreaksOnOutRef(t *testing.T) {
	utxos := []types.Utxo{
		lovelaceUtxo("ff", 1, 6_000_000),
		lovelaceUtxo("aa", 9, 6_000_000),
	}

	picked, err := SelectCollateral(utxos, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, "aa#9", picked.OutRef())
}

func TestSelectCollateralNoCandidate(t *testing.T) {
	withToken := lovelaceUtxo("bb", 0, 10_000_000)
	withToken.Amount = append(withToken.Amount, types.Asset{Unit: "policytoken", Quantity: 1})

	utxos := []types.Utxo{
		lovelaceUtxo("aa", 0, 4_999_999),
		withToken,
	}

	_, err := SelectCollateral(utxos, 5_000_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoCollateral)
}

func TestSelectCollateralEmptySet(t *testing.T) {
	_, err := SelectCollateral(nil, 5_000_000)
	assert.ErrorIs(t, err, types.ErrNoCollateral)
}

func TestSelectFundingSkipsCollateral(t *testing.T) {
	collateral := lovelaceUtxo("aa", 0, 20_000_000)
	utxos := []types.Utxo{
		collateral,
		lovelaceUtxo("bb", 0, 30_000_000),
	}

	picked, err := selectFunding(utxos, 10_000_000, &collateral)
	require.NoError(t, err)
	assert.Equal(t, "bb#0", picked.OutRef())
}

func TestSelectFundingNothingCovers(t *testing.T) {
	utxos := []types.Utxo{lovelaceUtxo("aa", 0, 1_000_000)}

	_, err := selectFunding(utxos, 10_000_000, nil)
	assert.ErrorIs(t, err, types.ErrNoUtxos)
}
