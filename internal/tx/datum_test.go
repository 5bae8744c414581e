package tx

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/hydrafund/hydrafund-node/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(seed byte) Credentials {
	return Credentials{
		PaymentKeyHash: bytes.Repeat([]byte{seed}, 28),
		StakeKeyHash:   bytes.Repeat([]byte{seed + 1}, 28),
	}
}

func TestFundDatumRoundTrip(t *testing.T) {
	datum := FundDatum{
		Participants: []Participant{
			{Credentials: testCredentials(0x01), Amount: 10_000_000},
			{Credentials: testCredentials(0x10), Amount: 20_000_000},
		},
		Destination: testCredentials(0x20),
		Required:    15_000_000,
	}

	raw, err := EncodeFundDatum(datum)
	require.NoError(t, err)

	decoded, err := DecodeFundDatum(raw)
	require.NoError(t, err)
	assert.Equal(t, datum, *decoded)
}

func TestFundDatumDeterministicEncoding(t *testing.T) {
	datum := FundDatum{
		Participants: []Participant{{Credentials: testCredentials(0x01), Amount: 1}},
		Destination:  testCredentials(0x02),
		Required:     1,
	}

	first, err := EncodeFundDatum(datum)
	require.NoError(t, err)
	second, err := EncodeFundDatum(datum)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeFundDatumRejectsGarbage(t *testing.T) {
	_, err := DecodeFundDatum([]byte{0xff, 0x00, 0x13})
	assert.ErrorIs(t, err, types.ErrDatumDecode)
}

func TestDecodeFundDatumRejectsWrongConstructor(t *testing.T) {
	raw, err := datumEncMode.Marshal(constr(1, []interface{}{}, credentialsValue(testCredentials(0x01)), uint64(1)))
	require.NoError(t, err)

	_, err = DecodeFundDatum(raw)
	assert.ErrorIs(t, err, types.ErrDatumDecode)
}

func TestDecodeFundDatumRejectsWrongArity(t *testing.T) {
	raw, err := datumEncMode.Marshal(constr(0, []interface{}{}, credentialsValue(testCredentials(0x01))))
	require.NoError(t, err)

	_, err = DecodeFundDatum(raw)
	assert.ErrorIs(t, err, types.ErrDatumDecode)
}

func TestDecodeFundDatumRejectsNonListParticipants(t *testing.T) {
	raw, err := datumEncMode.Marshal(constr(0, uint64(7), credentialsValue(testCredentials(0x01)), uint64(1)))
	require.NoError(t, err)

	_, err = DecodeFundDatum(raw)
	assert.ErrorIs(t, err, types.ErrDatumDecode)
}

func TestDecodeFundDatumRejectsNegativeAmount(t *testing.T) {
	entry := constr(0, credentialsValue(testCredentials(0x01)), int64(-5))
	raw, err := datumEncMode.Marshal(constr(0, []interface{}{entry}, credentialsValue(testCredentials(0x02)), uint64(1)))
	require.NoError(t, err)

	_, err = DecodeFundDatum(raw)
	assert.ErrorIs(t, err, types.ErrDatumDecode)
}

func TestEncodeRedeemerBranches(t *testing.T) {
	update, err := EncodeRedeemer(RedeemerUpdate)
	require.NoError(t, err)
	assert.Equal(t, "d87980", hex.EncodeToString(update))

	finalize, err := EncodeRedeemer(RedeemerFinalize)
	require.NoError(t, err)
	assert.Equal(t, "d87a80", hex.EncodeToString(finalize))

	_, err = EncodeRedeemer(RedeemerKind("refund"))
	assert.Error(t, err)
}

func TestConstructorTagNumbers(t *testing.T) {
	raw, err := datumEncMode.Marshal(constr(0))
	require.NoError(t, err)

	var tag cbor.Tag
	require.NoError(t, cbor.Unmarshal(raw, &tag))
	assert.Equal(t, uint64(121), tag.Number)
}
