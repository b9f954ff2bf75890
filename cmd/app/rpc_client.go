package main

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/atvirokodosprendimai/testdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

type rpcClient struct {
	socket string
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	Result  rpcResult      `json:"result"`
	Error   *rpcjson.Error `json:"error"`
	ID      any            `json:"id"`
}

type rpcResult struct {
	Data    json.RawMessage `json:"data"`
	Notices []domain.Notice `json:"notices"`
}

func newRPCClient(socket string) *rpcClient {
	return &rpcClient{socket: socket}
}

// call sends one request on a fresh connection.
func (c *rpcClient) call(ctx context.Context, method string, params any) (rpcResult, error) {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return rpcResult{}, err
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return rpcResult{}, err
	}

	var resp rpcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return rpcResult{}, err
	}
	if resp.Error != nil {
		return rpcResult{}, resp.Error
	}
	return resp.Result, nil
}
