package bitcoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ordhord/hord/internal/metrics"
)

// BitcoinRPC defines the collaborator interface the ingestion pipeline
// depends on: a blocking façade over bitcoind's JSON-RPC, with retry
// already applied internally so callers never see a transient failure.
type BitcoinRPC interface {
	FetchBlockHash(ctx context.Context, height int64) (string, error)
	FetchBlock(ctx context.Context, hash string) (*RawBlockBreakdown, error)
}

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second

	// rpcRateLimit caps sustained request rate against bitcoind; the
	// ingestion pipeline's combined hash-fetch and block-fetch pools can
	// otherwise easily saturate a single node with concurrent requests.
	rpcRateLimit = 50
	rpcRateBurst = 100
)

// RPCClient implements BitcoinRPC using JSON-RPC over HTTP.
type RPCClient struct {
	url      string
	user     string
	password string
	client   *http.Client
	idSeq    atomic.Int64
	logger   *zap.Logger
	limiter  *rate.Limiter
}

// NewRPCClient creates a new Bitcoin JSON-RPC client.
func NewRPCClient(url, user, password string, logger *zap.Logger) *RPCClient {
	return &RPCClient{
		url:      url,
		user:     user,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		limiter:  rate.NewLimiter(rpcRateLimit, rpcRateBurst),
	}
}

// call makes a single JSON-RPC call and returns the raw result, with no
// retry of its own — retry is layered on top by FetchBlockHash/FetchBlock.
func (c *RPCClient) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	id := c.idSeq.Add(1)

	req := RPCRequest{
		JSONRPC: "1.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.user, c.password)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w (body: %s)", err, string(respBody))
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// retry invokes fn until it succeeds or ctx is done, backing off
// exponentially (capped at maxRetryDelay) between attempts. This is
// the "collaborator retry" the ingestion pipeline's hash/block fetch
// stages rely on never seeing.
func (c *RPCClient) retry(ctx context.Context, op string, fn func() error) error {
	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.RPCRetries.WithLabelValues(op).Inc()
		c.logger.Warn("bitcoin RPC call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// FetchBlockHash returns the block hash at the given height, retrying
// forever (bounded only by ctx) on transient RPC failure.
func (c *RPCClient) FetchBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	err := c.retry(ctx, "getblockhash", func() error {
		result, err := c.call(ctx, "getblockhash", height)
		if err != nil {
			return err
		}
		return json.Unmarshal(result, &hash)
	})
	return hash, err
}

// FetchBlock returns the full block breakdown (verbosity 3: every input
// annotated with its previous output's height and value) for the given
// hash, retrying forever on transient RPC failure.
func (c *RPCClient) FetchBlock(ctx context.Context, hash string) (*RawBlockBreakdown, error) {
	var block RawBlockBreakdown
	err := c.retry(ctx, "getblock", func() error {
		result, err := c.call(ctx, "getblock", hash, 3)
		if err != nil {
			return err
		}
		return json.Unmarshal(result, &block)
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}
