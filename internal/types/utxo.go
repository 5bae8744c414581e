package types

import "fmt"

// LovelaceUnit is the asset unit of the network's native currency.
const LovelaceUnit = "lovelace"

// LovelaceFactor converts UI-facing ada amounts to lovelace (6 decimal places).
const LovelaceFactor = 1_000_000

// Asset is a (unit, quantity) pair inside a transaction output, unique by
// unit within one UTXO.
type Asset struct {
	Unit     string `json:"unit"`
	Quantity uint64 `json:"quantity"`
}

// Utxo is a read-only snapshot of an unspent output, fetched per build.
type Utxo struct {
	TxHash   string  `json:"tx_hash"`
	OutIndex int     `json:"out_index"`
	Address  string  `json:"address"`
	Amount   []Asset `json:"amount"`
	Datum    []byte  `json:"datum,omitempty"` // inline datum, raw CBOR
}

// Lovelace returns the native-currency quantity of the output, 0 if absent.
func (u Utxo) Lovelace() uint64 {
	for _, a := range u.Amount {
		if a.Unit == LovelaceUnit {
			return a.Quantity
		}
	}
	return 0
}

// IsLovelaceOnly reports whether the output carries nothing but the native
// currency. Collateral outputs must satisfy this.
func (u Utxo) IsLovelaceOnly() bool {
	return len(u.Amount) == 1 && u.Amount[0].Unit == LovelaceUnit
}

// OutRef identifies the output as "txhash#index" for logs and dedup keys.
func (u Utxo) OutRef() string {
	return fmt.Sprintf("%s#%d", u.TxHash, u.OutIndex)
}
