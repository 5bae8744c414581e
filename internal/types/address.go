package types

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const credentialHashLen = 28

// AddressInfo is the decoded form of a bech32 Shelley address: the network
// tag plus the payment and (optional) stake credential hashes the datum
// codec and auth challenge need.
type AddressInfo struct {
	NetworkID      int
	PaymentKeyHash []byte
	StakeKeyHash   []byte
}

// DecodeAddress decodes a bech32 payment address ("addr..." / "addr_test...").
// Cardano addresses exceed the 90-char bech32 limit, hence DecodeNoLimit.
func DecodeAddress(addr string) (*AddressInfo, error) {
	hrp, payload, err := decodePayload(addr)
	if err != nil {
		return nil, err
	}
	if hrp != "addr" && hrp != "addr_test" {
		return nil, fmt.Errorf("unexpected address prefix %q", hrp)
	}
	header := payload[0]
	body := payload[1:]
	if len(body) < credentialHashLen {
		return nil, fmt.Errorf("address payload too short: %d bytes", len(body))
	}
	info := &AddressInfo{
		NetworkID:      int(header & 0x0f),
		PaymentKeyHash: body[:credentialHashLen],
	}
	if len(body) >= 2*credentialHashLen {
		info.StakeKeyHash = body[credentialHashLen : 2*credentialHashLen]
	}
	return info, nil
}

// DecodeRewardAddress decodes a bech32 stake address ("stake..." /
// "stake_test...") into its stake credential hash.
func DecodeRewardAddress(addr string) ([]byte, error) {
	hrp, payload, err := decodePayload(addr)
	if err != nil {
		return nil, err
	}
	if hrp != "stake" && hrp != "stake_test" {
		return nil, fmt.Errorf("unexpected reward address prefix %q", hrp)
	}
	body := payload[1:]
	if len(body) != credentialHashLen {
		return nil, fmt.Errorf("reward address payload length %d, want %d", len(body), credentialHashLen)
	}
	return body, nil
}

// AddressNetworkID extracts the network tag from the address header byte.
func AddressNetworkID(addr string) (int, error) {
	_, payload, err := decodePayload(addr)
	if err != nil {
		return 0, err
	}
	return int(payload[0] & 0x0f), nil
}

func decodePayload(addr string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return "", nil, fmt.Errorf("bech32 decode failed: %w", err)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("bech32 regroup failed: %w", err)
	}
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("empty address payload")
	}
	return hrp, payload, nil
}
