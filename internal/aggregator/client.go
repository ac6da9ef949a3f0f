package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://1inch-api.aperture.finance"
	apiVersion     = "v5.2"

	// DefaultMinInterval is the minimum gap between two request starts.
	DefaultMinInterval = 1500 * time.Millisecond
)

var ErrZeroAmount = errors.New("swap amount must be positive")

// Quote is a ready-to-send aggregator swap.
type Quote struct {
	ToAmount *big.Int
	To       common.Address
	Data     []byte
	Value    *big.Int
}

type approveSpenderResponse struct {
	Address string `json:"address"`
}

type swapResponse struct {
	ToAmount string `json:"toAmount"`
	Tx       struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
}

// Client talks to a 1inch compatible swap API. Requests are serialized and spaced by the limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics

	inflight *semaphore.Weighted
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithMinInterval overrides the spacing between request starts.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}

// NewClient builds an aggregator client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		inflight:   semaphore.NewWeighted(1),
		limiter:    rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// ApproveTarget returns the contract the aggregator pulls input tokens from.
func (c *Client) ApproveTarget(ctx context.Context, chainID uint64) (common.Address, error) {
	var resp approveSpenderResponse
	if err := c.get(ctx, "approve", fmt.Sprintf("/swap/%s/%d/approve/spender", apiVersion, chainID), nil, &resp); err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(resp.Address) {
		return common.Address{}, fmt.Errorf("invalid approve target %q", resp.Address)
	}
	return common.HexToAddress(resp.Address), nil
}

// Quote requests a swap of amount src into dst executed by from. slippage is a fraction in [0,1].
func (c *Client) Quote(ctx context.Context, chainID uint64, src, dst common.Address, amount *big.Int, from common.Address, slippage float64) (Quote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Quote{}, ErrZeroAmount
	}
	query := url.Values{}
	query.Set("src", src.Hex())
	query.Set("dst", dst.Hex())
	query.Set("amount", amount.String())
	query.Set("from", from.Hex())
	query.Set("slippage", strconv.FormatFloat(slippage*100, 'f', -1, 64))
	query.Set("disableEstimate", "true")
	query.Set("allowPartialFill", "false")

	var resp swapResponse
	if err := c.get(ctx, "swap", fmt.Sprintf("/swap/%s/%d/swap", apiVersion, chainID), query, &resp); err != nil {
		return Quote{}, err
	}

	toAmount, ok := new(big.Int).SetString(resp.ToAmount, 10)
	if !ok {
		return Quote{}, fmt.Errorf("invalid toAmount %q", resp.ToAmount)
	}
	if !common.IsHexAddress(resp.Tx.To) {
		return Quote{}, fmt.Errorf("invalid tx.to %q", resp.Tx.To)
	}
	data, err := hexutil.Decode(resp.Tx.Data)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid tx.data: %w", err)
	}
	value := new(big.Int)
	if resp.Tx.Value != "" {
		if _, ok := value.SetString(resp.Tx.Value, 10); !ok {
			return Quote{}, fmt.Errorf("invalid tx.value %q", resp.Tx.Value)
		}
	}
	return Quote{
		ToAmount: toAmount,
		To:       common.HexToAddress(resp.Tx.To),
		Data:     data,
		Value:    value,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inflight.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("aggregator request", zap.String("endpoint", endpoint), zap.String("url", reqURL))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.requests.WithLabelValues(endpoint, "status_"+strconv.Itoa(resp.StatusCode)).Inc()
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	c.metrics.requests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
