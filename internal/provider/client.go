package provider

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
)

// Client is the chain indexer the composer builds against: UTXO lookups,
// protocol parameters and layer-1 submission.
type Client interface {
	FetchAddressUTxOs(ctx context.Context, address string, unit string) ([]types.Utxo, error)
	FetchProtocolParameters(ctx context.Context) (*ProtocolParameters, error)
	SubmitTx(ctx context.Context, signedTx []byte) (string, error)
}

// ProtocolParameters is the subset of ledger parameters the composer needs
// for fee and execution budgeting.
type ProtocolParameters struct {
	MinFeeA          uint64 `json:"min_fee_a"`
	MinFeeB          uint64 `json:"min_fee_b"`
	CoinsPerUtxoByte uint64 `json:"coins_per_utxo_size,string"`
	MaxTxSize        uint64 `json:"max_tx_size"`
	CollateralPct    uint64 `json:"collateral_percent"`
}

// BlockfrostClient talks to a Blockfrost-compatible indexer.
type BlockfrostClient struct {
	baseURL   string
	projectID string
	client    *http.Client
}

var _ Client = (*BlockfrostClient)(nil)

func NewBlockfrostClient(baseURL, projectID string) *BlockfrostClient {
	return &BlockfrostClient{
		baseURL:   baseURL,
		projectID: projectID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type addressUtxoRow struct {
	TxHash      string `json:"tx_hash"`
	OutputIndex int    `json:"output_index"`
	Address     string `json:"address"`
	Amount      []struct {
		Unit     string `json:"unit"`
		Quantity string `json:"quantity"`
	} `json:"amount"`
	InlineDatum string `json:"inline_datum"`
}

// FetchAddressUTxOs returns the unspent outputs at an address, optionally
// restricted to outputs holding the given asset unit. An address the indexer
// has never seen yields an empty set, not an error.
func (c *BlockfrostClient) FetchAddressUTxOs(ctx context.Context, address string, unit string) ([]types.Utxo, error) {
	path := fmt.Sprintf("/addresses/%s/utxos", address)
	if unit != "" {
		path = fmt.Sprintf("/addresses/%s/utxos/%s", address, unit)
	}

	body, status, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("provider utxo query returned status %d: %s", status, string(body))
	}

	var rows []addressUtxoRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("provider utxo decode failed: %w", err)
	}

	utxos := make([]types.Utxo, 0, len(rows))
	for _, row := range rows {
		u := types.Utxo{
			TxHash:   row.TxHash,
			OutIndex: row.OutputIndex,
			Address:  row.Address,
		}
		if u.Address == "" {
			u.Address = address
		}
		for _, a := range row.Amount {
			qty, err := strconv.ParseUint(a.Quantity, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("provider utxo quantity %q: %w", a.Quantity, err)
			}
			u.Amount = append(u.Amount, types.Asset{Unit: a.Unit, Quantity: qty})
		}
		if row.InlineDatum != "" {
			datum, err := hex.DecodeString(row.InlineDatum)
			if err != nil {
				return nil, fmt.Errorf("provider inline datum hex: %w", err)
			}
			u.Datum = datum
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

func (c *BlockfrostClient) FetchProtocolParameters(ctx context.Context) (*ProtocolParameters, error) {
	body, status, err := c.get(ctx, "/epochs/latest/parameters")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("provider parameters query returned status %d: %s", status, string(body))
	}

	var params ProtocolParameters
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, fmt.Errorf("provider parameters decode failed: %w", err)
	}
	return &params, nil
}

// SubmitTx posts a signed transaction to layer-1 and returns its hash.
func (c *BlockfrostClient) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx/submit", bytes.NewReader(signedTx))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("project_id", c.projectID)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider submit failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider submit returned status %d: %s", resp.StatusCode, string(body))
	}

	var txHash string
	if err := json.Unmarshal(body, &txHash); err != nil {
		return "", fmt.Errorf("provider submit decode failed: %w", err)
	}
	log.Infof("Submitted transaction to layer-1, hash: %s", txHash)
	return txHash, nil
}

func (c *BlockfrostClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("project_id", c.projectID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
