package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtxoLovelace(t *testing.T) {
	u := Utxo{Amount: []Asset{
		{Unit: "policytoken", Quantity: 3},
		{Unit: LovelaceUnit, Quantity: 7_000_000},
	}}
	assert.Equal(t, uint64(7_000_000), u.Lovelace())

	empty := Utxo{}
	assert.Zero(t, empty.Lovelace())
}

func TestUtxoIsLovelaceOnly(t *testing.T) {
	pure := Utxo{Amount: []Asset{{Unit: LovelaceUnit, Quantity: 5_000_000}}}
	assert.True(t, pure.IsLovelaceOnly())

	mixed := Utxo{Amount: []Asset{
		{Unit: LovelaceUnit, Quantity: 5_000_000},
		{Unit: "policytoken", Quantity: 1},
	}}
	assert.False(t, mixed.IsLovelaceOnly())

	assert.False(t, Utxo{}.IsLovelaceOnly())
}

func TestUtxoOutRef(t *testing.T) {
	u := Utxo{TxHash: "abcd", OutIndex: 3}
	assert.Equal(t, "abcd#3", u.OutRef())
}

func TestParseChannelStatus(t *testing.T) {
	assert.Equal(t, StatusOpen, ParseChannelStatus("Open"))
	assert.Equal(t, StatusOpen, ParseChannelStatus("OPEN"))
	assert.Equal(t, StatusFanoutPossible, ParseChannelStatus("FanoutPossible"))
	assert.Equal(t, StatusFinal, ParseChannelStatus("FINAL"))
	assert.Equal(t, StatusIdle, ParseChannelStatus("somethingelse"))
	assert.Equal(t, StatusIdle, ParseChannelStatus(""))
}
