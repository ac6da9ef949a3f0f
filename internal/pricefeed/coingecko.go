package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"automanKit/internal/chaininfo"
)

const (
	PublicBaseURL = "https://api.coingecko.com/api/v3"
	ProBaseURL    = "https://pro-api.coingecko.com/api/v3"

	apiKeyHeader = "x-cg-pro-api-key"
)

var ErrPriceNotFound = errors.New("price not found")

// PricePoint is one sample of a price history.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Client reads USD (or other vs currency) prices from CoinGecko.
type Client struct {
	baseURL    string
	apiKey     string
	registry   *chaininfo.Registry
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURL replaces the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewClient builds a CoinGecko client. A non-empty apiKey selects the pro API.
func NewClient(apiKey string, registry *chaininfo.Registry, opts ...Option) *Client {
	c := &Client{
		baseURL:    PublicBaseURL,
		apiKey:     apiKey,
		registry:   registry,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if apiKey != "" {
		c.baseURL = ProBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// TokenPrice returns the current price of token in vsCurrency.
func (c *Client) TokenPrice(ctx context.Context, chainID uint64, token common.Address, vsCurrency string) (decimal.Decimal, error) {
	prices, err := c.TokenPrices(ctx, chainID, []common.Address{token}, vsCurrency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	price, ok := prices[token]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrPriceNotFound, token.Hex())
	}
	return price, nil
}

// TokenPrices returns current prices for several tokens in one request. Unknown tokens are absent.
func (c *Client) TokenPrices(ctx context.Context, chainID uint64, tokens []common.Address, vsCurrency string) (map[common.Address]decimal.Decimal, error) {
	info, err := c.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return map[common.Address]decimal.Decimal{}, nil
	}
	vsCurrency = normalizeCurrency(vsCurrency)

	addresses := make([]string, 0, len(tokens))
	for _, token := range tokens {
		addresses = append(addresses, strings.ToLower(token.Hex()))
	}
	query := url.Values{}
	query.Set("contract_addresses", strings.Join(addresses, ","))
	query.Set("vs_currencies", vsCurrency)

	var resp map[string]map[string]decimal.Decimal
	if err := c.get(ctx, "/simple/token_price/"+info.CoinGeckoPlatform, query, &resp); err != nil {
		return nil, err
	}
	out := make(map[common.Address]decimal.Decimal, len(resp))
	for address, quotes := range resp {
		price, ok := quotes[vsCurrency]
		if !ok {
			continue
		}
		out[common.HexToAddress(address)] = price
	}
	return out, nil
}

// NativePrice returns the current price of the chain's native currency.
func (c *Client) NativePrice(ctx context.Context, chainID uint64, vsCurrency string) (decimal.Decimal, error) {
	info, err := c.registry.Get(chainID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	vsCurrency = normalizeCurrency(vsCurrency)
	query := url.Values{}
	query.Set("ids", info.CoinGeckoNativeID)
	query.Set("vs_currencies", vsCurrency)

	var resp map[string]map[string]decimal.Decimal
	if err := c.get(ctx, "/simple/price", query, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	price, ok := resp[info.CoinGeckoNativeID][vsCurrency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrPriceNotFound, info.CoinGeckoNativeID)
	}
	return price, nil
}

// HistoricalPrices returns the price history of token over the last days days.
// CoinGecko picks the granularity from the window length.
func (c *Client) HistoricalPrices(ctx context.Context, chainID uint64, token common.Address, vsCurrency string, days int) ([]PricePoint, error) {
	info, err := c.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	query := url.Values{}
	query.Set("vs_currency", normalizeCurrency(vsCurrency))
	query.Set("days", strconv.Itoa(days))

	var resp struct {
		Prices [][2]decimal.Decimal `json:"prices"`
	}
	path := fmt.Sprintf("/coins/%s/contract/%s/market_chart", info.CoinGeckoPlatform, strings.ToLower(token.Hex()))
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	out := make([]PricePoint, 0, len(resp.Prices))
	for _, sample := range resp.Prices {
		out = append(out, PricePoint{
			Time:  time.UnixMilli(sample[0].IntPart()).UTC(),
			Price: sample[1],
		})
	}
	return out, nil
}

func normalizeCurrency(vsCurrency string) string {
	if vsCurrency == "" {
		return "usd"
	}
	return strings.ToLower(vsCurrency)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	c.logger.Debug("coingecko request", zap.String("path", path))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
