package tx

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/hydrafund/hydrafund-node/internal/types"
)

// Plutus data encodes constructors as CBOR tags 121+index (for the first
// seven alternatives). The fund datum is a 3-field constr 0 whose field
// order is fixed and must never be permuted:
//
//	field 0: list of (beneficiary credentials, amount) pairs
//	field 1: beneficiary credentials of the destination
//	field 2: required amount (lovelace)
const plutusConstrBase = 121

// Credentials is a beneficiary identity on chain: payment key hash plus
// stake credential hash.
type Credentials struct {
	PaymentKeyHash []byte
	StakeKeyHash   []byte
}

// Participant is one contribution entry inside the locked datum.
type Participant struct {
	Credentials Credentials
	Amount      uint64
}

// FundDatum is the structured value locked with campaign funds. Invariant:
// Participants is non-empty whenever funds are locked.
type FundDatum struct {
	Participants []Participant
	Destination  Credentials
	Required     uint64
}

var datumEncMode cbor.EncMode

func init() {
	var err error
	datumEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func constr(index uint64, fields ...interface{}) cbor.Tag {
	if fields == nil {
		// a nil slice would serialize as null, not as the empty field list
		fields = []interface{}{}
	}
	return cbor.Tag{Number: plutusConstrBase + index, Content: fields}
}

func credentialsValue(c Credentials) cbor.Tag {
	return constr(0, c.PaymentKeyHash, c.StakeKeyHash)
}

// EncodeFundDatum serializes the datum deterministically.
func EncodeFundDatum(d FundDatum) ([]byte, error) {
	entries := make([]interface{}, 0, len(d.Participants))
	for _, p := range d.Participants {
		entries = append(entries, constr(0, credentialsValue(p.Credentials), p.Amount))
	}
	value := constr(0, entries, credentialsValue(d.Destination), d.Required)
	out, err := datumEncMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("datum encode failed: %w", err)
	}
	return out, nil
}

// DecodeFundDatum parses a locked datum strictly: any deviation from the
// fixed 3-field shape fails with ErrDatumDecode, never a partial result.
func DecodeFundDatum(raw []byte) (*FundDatum, error) {
	var value interface{}
	if err := cbor.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatumDecode, err)
	}

	fields, err := constrFields(value, 0, 3)
	if err != nil {
		return nil, err
	}

	entries, ok := fields[0].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: participants field is not a list", types.ErrDatumDecode)
	}
	participants := make([]Participant, 0, len(entries))
	for _, entry := range entries {
		pair, err := constrFields(entry, 0, 2)
		if err != nil {
			return nil, err
		}
		creds, err := decodeCredentials(pair[0])
		if err != nil {
			return nil, err
		}
		amount, err := decodeUint(pair[1])
		if err != nil {
			return nil, err
		}
		participants = append(participants, Participant{Credentials: creds, Amount: amount})
	}

	destination, err := decodeCredentials(fields[1])
	if err != nil {
		return nil, err
	}
	required, err := decodeUint(fields[2])
	if err != nil {
		return nil, err
	}

	return &FundDatum{
		Participants: participants,
		Destination:  destination,
		Required:     required,
	}, nil
}

func constrFields(value interface{}, index uint64, arity int) ([]interface{}, error) {
	tag, ok := value.(cbor.Tag)
	if !ok {
		return nil, fmt.Errorf("%w: expected constructor, got %T", types.ErrDatumDecode, value)
	}
	if tag.Number != plutusConstrBase+index {
		return nil, fmt.Errorf("%w: constructor tag %d, want %d", types.ErrDatumDecode, tag.Number, plutusConstrBase+index)
	}
	fields, ok := tag.Content.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: constructor content is not a field list", types.ErrDatumDecode)
	}
	if len(fields) != arity {
		return nil, fmt.Errorf("%w: constructor has %d fields, want %d", types.ErrDatumDecode, len(fields), arity)
	}
	return fields, nil
}

func decodeCredentials(value interface{}) (Credentials, error) {
	pair, err := constrFields(value, 0, 2)
	if err != nil {
		return Credentials{}, err
	}
	payment, ok := pair[0].([]byte)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: payment credential is not bytes", types.ErrDatumDecode)
	}
	stake, ok := pair[1].([]byte)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: stake credential is not bytes", types.ErrDatumDecode)
	}
	return Credentials{PaymentKeyHash: payment, StakeKeyHash: stake}, nil
}

func decodeUint(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative amount", types.ErrDatumDecode)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("%w: amount is not an integer, got %T", types.ErrDatumDecode, value)
	}
}
