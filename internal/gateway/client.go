// Package gateway implements a JSON-RPC client for the MCP tool gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

const (
	// maxToolPages caps cursor-based pagination of tools/list.
	maxToolPages = 10

	jsonRPCVersion = "2.0"
)

// Tool describes a tool exposed by the gateway.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ContentBlock is a single content entry in a tool call result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the outcome of a tools/call invocation.
type CallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// Client talks JSON-RPC to an MCP gateway endpoint. Calls are authorized with
// the caller's bearer token and throttled by a shared limiter.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	nextID     atomic.Int64
}

// Config holds gateway client construction parameters.
type Config struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerMinute int
}

// New creates a gateway client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        logger.Get().With("component", "gateway_client"),
	}
}

// ListTools fetches the full tool catalog, following pagination cursors.
func (c *Client) ListTools(ctx context.Context, bearer string) ([]Tool, error) {
	var tools []Tool
	var cursor string

	for page := 0; page < maxToolPages; page++ {
		params := map[string]interface{}{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var result struct {
			Tools      []Tool `json:"tools"`
			NextCursor string `json:"nextCursor"`
		}
		if err := c.call(ctx, bearer, "tools/list", params, &result); err != nil {
			return nil, err
		}

		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			return tools, nil
		}
		cursor = result.NextCursor
	}

	c.log.Warnf("Tool listing stopped at page cap %d with %d tools", maxToolPages, len(tools))
	return tools, nil
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, bearer, name string, args map[string]interface{}) (*CallResult, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	var result CallResult
	err := c.call(ctx, bearer, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": args,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// call performs a single JSON-RPC request against the gateway.
func (c *Client) call(ctx context.Context, bearer, method string, params, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrRateLimitExceeded, "gateway limiter: %v", err)
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      c.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return errors.Wrap(err, "marshal gateway request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrap(err, "create gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "gateway request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read gateway response")
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return err
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return errors.Wrapf(errors.ErrGatewayProtocol, "decode gateway response: %v", err)
	}
	if rpcResp.Error != nil {
		return errors.Wrapf(errors.ErrGatewayProtocol, "gateway %s error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return errors.Wrapf(errors.ErrGatewayProtocol, "gateway %s returned no result", method)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return errors.Wrapf(errors.ErrGatewayProtocol, "decode gateway %s result: %v", method, err)
	}
	return nil
}

// statusError maps HTTP status codes to gateway error sentinels.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		return errors.Wrap(errors.ErrGatewayAuth, "gateway rejected token")
	case status == http.StatusForbidden:
		return errors.Wrap(errors.ErrGatewayForbidden, "gateway denied access")
	case status == http.StatusNotFound:
		return errors.Wrap(errors.ErrGatewayNotFound, "gateway endpoint not found")
	case status == http.StatusTooManyRequests:
		return errors.Wrap(errors.ErrRateLimitExceeded, "gateway throttled request")
	case status >= 500:
		return errors.Wrapf(errors.ErrUnavailable, "gateway error (%d): %s", status, string(body))
	default:
		return errors.Wrapf(errors.ErrExternal, "gateway error (%d): %s", status, string(body))
	}
}
