package client

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"dag-syncer/logger"
	"dag-syncer/models"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultCallTimeout = 30 * time.Second

// WRPCClient talks JSON-RPC over a websocket to the node. Calls are
// serialized over the single connection; a failed call marks the client
// disconnected and the next call redials lazily.
type WRPCClient struct {
	url         string
	callTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64

	connected atomic.Bool
}

type rpcRequest struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

type getBlocksParams struct {
	LowHash            string `json:"low_hash"`
	IncludeBlocks      bool   `json:"include_blocks"`
	IncludeVerboseData bool   `json:"include_verbose_data"`
}

type getBlocksResult struct {
	Blocks []*models.Block `json:"blocks"`
}

// Dial connects to the node's websocket RPC endpoint
func Dial(url string) (*WRPCClient, error) {
	c := &WRPCClient{
		url:         url,
		callTimeout: defaultCallTimeout,
	}
	if err := c.redial(); err != nil {
		return nil, err
	}
	logger.Logger.Info("Connected to node", zap.String("url", url))
	return c, nil
}

// SetCallTimeout overrides the per-call timeout
func (c *WRPCClient) SetCallTimeout(timeout time.Duration) {
	c.callTimeout = timeout
}

// IsConnected reports connectivity without blocking
func (c *WRPCClient) IsConnected() bool {
	return c.connected.Load()
}

// Close shuts the websocket down
func (c *WRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected.Store(false)
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// GetBlocks fetches the next ordered batch of blocks forward of lowHash
func (c *WRPCClient) GetBlocks(ctx context.Context, lowHash string, includeBlocks, includeVerboseData bool) ([]*models.Block, error) {
	params := getBlocksParams{
		LowHash:            lowHash,
		IncludeBlocks:      includeBlocks,
		IncludeVerboseData: includeVerboseData,
	}
	var result getBlocksResult
	if err := c.call(ctx, "getBlocks", params, &result); err != nil {
		return nil, err
	}
	return result.Blocks, nil
}

func (c *WRPCClient) redial() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.connected.Store(false)
		return errors.Wrapf(ErrDisconnected, "dial %s: %s", c.url, err)
	}
	c.conn = conn
	c.connected.Store(true)
	return nil
}

func (c *WRPCClient) call(ctx context.Context, method string, params, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.redial(); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(c.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.nextID++
	req := rpcRequest{ID: c.nextID, Method: method, Params: params}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return c.dropConn(err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return c.dropConn(err)
	}

	// Read until the response matching our request id arrives; the node may
	// interleave notifications for other subscriptions on the same socket.
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return c.dropConn(err)
		}
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return c.dropConn(err)
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			// A structured error from the node is not a transport failure.
			return errors.Errorf("rpc %s failed: %s", method, resp.Error.Message)
		}
		if result == nil {
			return nil
		}
		return errors.Wrapf(json.Unmarshal(resp.Result, result), "rpc %s: decode result", method)
	}
}

// dropConn closes the broken connection and classifies the transport error
// into the timeout/disconnect sentinels.
func (c *WRPCClient) dropConn(err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected.Store(false)
	return classifyTransportError(err)
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(ErrTimeout, err.Error())
	}
	return errors.Wrap(ErrDisconnected, err.Error())
}
