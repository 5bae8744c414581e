package tx

import (
	"fmt"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// RedeemerKind selects which contract branch executes when spending the
// locked output.
type RedeemerKind string

const (
	RedeemerUpdate   RedeemerKind = "update"
	RedeemerFinalize RedeemerKind = "finalize"
)

// constructor indexes in the compiled validator
var redeemerIndex = map[RedeemerKind]uint64{
	RedeemerUpdate:   0,
	RedeemerFinalize: 1,
}

// EncodeRedeemer serializes an argument-less redeemer for the given branch.
func EncodeRedeemer(kind RedeemerKind) ([]byte, error) {
	index, ok := redeemerIndex[kind]
	if !ok {
		return nil, fmt.Errorf("unknown redeemer kind %q", kind)
	}
	return datumEncMode.Marshal(constr(index))
}

// Input is a spend in an unsigned draft. Script inputs carry the redeemer
// selecting the contract branch.
type Input struct {
	TxHash   string `cbor:"0,keyasint"`
	OutIndex int    `cbor:"1,keyasint"`
	Amount   uint64 `cbor:"2,keyasint"`
	Script   bool   `cbor:"3,keyasint"`
	Redeemer []byte `cbor:"4,keyasint,omitempty"`
}

// Output is a produced value, optionally locked with an inline datum.
type Output struct {
	Address string `cbor:"0,keyasint"`
	Amount  uint64 `cbor:"1,keyasint"`
	Datum   []byte `cbor:"2,keyasint,omitempty"`
}

// Draft is an unsigned transaction: immutable once built, consumed exactly
// once by a signing step. Serialization is deterministic CBOR; the final
// wire encoding is owned by the signing side.
type Draft struct {
	NetworkID       int      `cbor:"0,keyasint"`
	Inputs          []Input  `cbor:"1,keyasint"`
	Outputs         []Output `cbor:"2,keyasint"`
	CollateralHash  string   `cbor:"3,keyasint"`
	CollateralIndex int      `cbor:"4,keyasint"`
	RequiredSigners [][]byte `cbor:"5,keyasint,omitempty"`
	ScriptCode      string   `cbor:"6,keyasint,omitempty"`
	ChangeAddress   string   `cbor:"7,keyasint"`
}

// Bytes serializes the draft for the signing step.
func (d *Draft) Bytes() ([]byte, error) {
	out, err := datumEncMode.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("draft encode failed: %w", err)
	}
	return out, nil
}

func scriptInput(u types.Utxo, redeemer []byte) Input {
	return Input{
		TxHash:   u.TxHash,
		OutIndex: u.OutIndex,
		Amount:   u.Lovelace(),
		Script:   true,
		Redeemer: redeemer,
	}
}

func walletInput(u types.Utxo) Input {
	return Input{
		TxHash:   u.TxHash,
		OutIndex: u.OutIndex,
		Amount:   u.Lovelace(),
	}
}
