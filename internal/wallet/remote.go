package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// RemoteConnector reaches the user's wallet extension through the bridge
// service running next to the user agent. Every handle call is one JSON
// round trip; the bridge owns keys and user prompts, this side never sees
// secrets.
type RemoteConnector struct {
	baseURL string
	client  *http.Client
}

var _ Connector = (*RemoteConnector)(nil)

func NewRemoteConnector(baseURL string) *RemoteConnector {
	return &RemoteConnector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *RemoteConnector) Enable(ctx context.Context, walletName string) (Handle, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	err := c.post(ctx, "/enable", map[string]string{"wallet": walletName}, &resp)
	if err != nil {
		return nil, fmt.Errorf("bridge enable %s: %w", walletName, err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("bridge enable %s: empty session", walletName)
	}
	return &remoteHandle{connector: c, sessionID: resp.SessionID}, nil
}

func (c *RemoteConnector) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

type remoteHandle struct {
	connector *RemoteConnector
	sessionID string
}

var _ Handle = (*remoteHandle)(nil)

func (h *remoteHandle) call(ctx context.Context, path string, payload map[string]interface{}, out interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["session_id"] = h.sessionID
	return h.connector.post(ctx, path, payload, out)
}

func (h *remoteHandle) GetNetworkID(ctx context.Context) (int, error) {
	var resp struct {
		NetworkID int `json:"network_id"`
	}
	if err := h.call(ctx, "/network-id", nil, &resp); err != nil {
		return 0, err
	}
	return resp.NetworkID, nil
}

func (h *remoteHandle) GetUtxos(ctx context.Context) ([]types.Utxo, error) {
	var resp struct {
		Utxos []types.Utxo `json:"utxos"`
	}
	if err := h.call(ctx, "/utxos", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Utxos, nil
}

func (h *remoteHandle) GetCollateral(ctx context.Context) ([]types.Utxo, error) {
	var resp struct {
		Utxos []types.Utxo `json:"utxos"`
	}
	if err := h.call(ctx, "/collateral", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Utxos, nil
}

func (h *remoteHandle) GetChangeAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := h.call(ctx, "/change-address", nil, &resp); err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (h *remoteHandle) GetRewardAddresses(ctx context.Context) ([]string, error) {
	var resp struct {
		Addresses []string `json:"addresses"`
	}
	if err := h.call(ctx, "/reward-addresses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (h *remoteHandle) SignData(ctx context.Context, payload []byte) ([]byte, []byte, error) {
	var resp struct {
		PublicKey string `json:"public_key"`
		Signature string `json:"signature"`
	}
	err := h.call(ctx, "/sign-data", map[string]interface{}{"payload": hex.EncodeToString(payload)}, &resp)
	if err != nil {
		return nil, nil, err
	}
	publicKey, err := hex.DecodeString(resp.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("bridge public key hex: %w", err)
	}
	signature, err := hex.DecodeString(resp.Signature)
	if err != nil {
		return nil, nil, fmt.Errorf("bridge signature hex: %w", err)
	}
	return publicKey, signature, nil
}

func (h *remoteHandle) SignTx(ctx context.Context, unsignedTx []byte) ([]byte, error) {
	var resp struct {
		SignedTx string `json:"signed_tx"`
	}
	err := h.call(ctx, "/sign-tx", map[string]interface{}{"unsigned_tx": hex.EncodeToString(unsignedTx)}, &resp)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(resp.SignedTx)
}

func (h *remoteHandle) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	err := h.call(ctx, "/submit-tx", map[string]interface{}{"signed_tx": hex.EncodeToString(signedTx)}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}
