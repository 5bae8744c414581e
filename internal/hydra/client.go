package hydra

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
)

// NodeClient is the websocket session to a head coordination node. The read
// loop publishes every tagged message and every implied status change on
// the event bus; commands are JSON writes on the same connection.
type NodeClient struct {
	nodeURL string
	st      *state.State
	client  *http.Client

	connMu    sync.Mutex
	conn      *websocket.Conn
	connected bool

	writeMu sync.Mutex
}

var _ ChannelClient = (*NodeClient)(nil)

func NewNodeClient(nodeURL string, st *state.State) *NodeClient {
	return &NodeClient{
		nodeURL: nodeURL,
		st:      st,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Connect dials the node and starts the read loop. Idempotent while the
// connection is healthy.
func (c *NodeClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.nodeURL+"/?history=no", nil)
	if err != nil {
		return errors.Errorf("dial head node %s: %v", c.nodeURL, err)
	}
	c.conn = conn
	c.connected = true
	go c.readLoop(conn)

	log.Infof("Connected to head node %s", c.nodeURL)
	return nil
}

func (c *NodeClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("Head node connection lost: %v", err)
			c.connMu.Lock()
			if c.conn == conn {
				c.connected = false
				c.conn = nil
			}
			c.connMu.Unlock()
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debugf("Skipping unparseable head message: %v", err)
			continue
		}
		msg.Raw = data

		if status, ok := statusForTag(msg); ok {
			c.st.SetHeadStatus(status)
		}
		c.st.EventBus.Publish(state.HeadMessage, msg)
	}
}

func (c *NodeClient) command(payload interface{}) error {
	c.connMu.Lock()
	conn := c.conn
	connected := c.connected
	c.connMu.Unlock()

	if !connected || conn == nil {
		return errors.New("head node not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(payload); err != nil {
		return errors.Errorf("head command dispatch: %v", err)
	}
	return nil
}

func (c *NodeClient) Init(ctx context.Context) error {
	return c.command(map[string]string{"tag": "Init"})
}

func (c *NodeClient) Close(ctx context.Context) error {
	return c.command(map[string]string{"tag": "Close"})
}

func (c *NodeClient) Fanout(ctx context.Context) error {
	return c.command(map[string]string{"tag": "Fanout"})
}

// NewTx submits a signed transaction into the open head.
func (c *NodeClient) NewTx(ctx context.Context, signedTx []byte) error {
	return c.command(map[string]interface{}{
		"tag": "NewTx",
		"transaction": map[string]string{
			"type":    "Witnessed Tx ConwayEra",
			"cborHex": hex.EncodeToString(signedTx),
		},
	})
}

// GetStatus reports the head lifecycle state for display. It never fails:
// an unreachable node degrades to IDLE.
func (c *NodeClient) GetStatus(ctx context.Context) types.ChannelStatus {
	c.connMu.Lock()
	connected := c.connected
	c.connMu.Unlock()

	if !connected {
		if err := c.Connect(ctx); err != nil {
			log.Debugf("Head status query degraded to IDLE: %v", err)
			return types.StatusIdle
		}
	}
	return c.st.GetHeadStatus()
}

type commitOutput struct {
	Address string            `json:"address"`
	Value   map[string]uint64 `json:"value"`
}

// DraftCommitTx asks the node for the layer-1 transaction committing the
// given outputs into the head. The caller signs and submits it; the node
// reports Committed and eventually HeadIsOpen over the feed.
func (c *NodeClient) DraftCommitTx(ctx context.Context, utxos []types.Utxo) ([]byte, error) {
	commit := map[string]commitOutput{}
	for _, u := range utxos {
		value := map[string]uint64{}
		for _, a := range u.Amount {
			value[a.Unit] = a.Quantity
		}
		commit[u.OutRef()] = commitOutput{Address: u.Address, Value: value}
	}
	payload, err := json.Marshal(map[string]interface{}{"utxo": commit})
	if err != nil {
		return nil, err
	}

	url := httpBaseURL(c.nodeURL) + "/commit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Errorf("head commit draft: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("head commit draft returned status %d: %s", resp.StatusCode, string(body))
	}

	var draft struct {
		CborHex string `json:"cborHex"`
	}
	if err := json.Unmarshal(body, &draft); err != nil {
		return nil, errors.Errorf("head commit draft decode: %v", err)
	}
	if draft.CborHex == "" {
		return nil, errors.New("head commit draft has no transaction body")
	}
	return hex.DecodeString(draft.CborHex)
}

type snapshotOutput struct {
	Address        string                     `json:"address"`
	Value          map[string]json.RawMessage `json:"value"`
	InlineDatumRaw string                     `json:"inlineDatumRaw"`
}

// SnapshotUTxOs fetches the head's confirmed UTXO snapshot, filtered to one
// address. Keys are "txhash#index".
func (c *NodeClient) SnapshotUTxOs(ctx context.Context, address string) ([]types.Utxo, error) {
	url := httpBaseURL(c.nodeURL) + "/snapshot/utxo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Errorf("head snapshot query: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("head snapshot query returned status %d: %s", resp.StatusCode, string(body))
	}

	var outputs map[string]snapshotOutput
	if err := json.Unmarshal(body, &outputs); err != nil {
		return nil, errors.Errorf("head snapshot decode: %v", err)
	}

	var utxos []types.Utxo
	for ref, out := range outputs {
		if out.Address != address {
			continue
		}
		u, err := snapshotToUtxo(ref, out)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

func snapshotToUtxo(ref string, out snapshotOutput) (types.Utxo, error) {
	hash, indexStr, found := strings.Cut(ref, "#")
	if !found {
		return types.Utxo{}, fmt.Errorf("malformed snapshot output ref %q", ref)
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return types.Utxo{}, fmt.Errorf("malformed snapshot output index %q", ref)
	}

	u := types.Utxo{TxHash: hash, OutIndex: index, Address: out.Address}
	for unit, raw := range out.Value {
		if unit == types.LovelaceUnit {
			var qty uint64
			if err := json.Unmarshal(raw, &qty); err != nil {
				return types.Utxo{}, fmt.Errorf("snapshot lovelace quantity: %w", err)
			}
			u.Amount = append(u.Amount, types.Asset{Unit: types.LovelaceUnit, Quantity: qty})
			continue
		}
		// native assets nest by policy id
		var assets map[string]uint64
		if err := json.Unmarshal(raw, &assets); err != nil {
			return types.Utxo{}, fmt.Errorf("snapshot asset bundle under %s: %w", unit, err)
		}
		for name, qty := range assets {
			u.Amount = append(u.Amount, types.Asset{Unit: unit + name, Quantity: qty})
		}
	}
	if out.InlineDatumRaw != "" {
		datum, err := hex.DecodeString(out.InlineDatumRaw)
		if err != nil {
			return types.Utxo{}, fmt.Errorf("snapshot inline datum hex: %w", err)
		}
		u.Datum = datum
	}
	return u, nil
}

func httpBaseURL(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	default:
		return wsURL
	}
}
