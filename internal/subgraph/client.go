package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"automanKit/internal/chaininfo"
)

const DefaultGatewayURL = "https://gateway.thegraph.com/api"

var (
	ErrNoSubgraph = errors.New("no subgraph configured for chain")
	ErrGraphQL    = errors.New("graphql error")
)

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Client queries the Uniswap V3 subgraphs through The Graph gateway.
type Client struct {
	gatewayURL string
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

// WithGatewayURL replaces DefaultGatewayURL.
func WithGatewayURL(gatewayURL string) Option {
	return func(c *Client) { c.gatewayURL = strings.TrimRight(gatewayURL, "/") }
}

// NewClient builds a subgraph client resolving subgraph ids from registry.
func NewClient(apiKey string, registry *chaininfo.Registry, opts ...Option) *Client {
	c := &Client{
		gatewayURL: DefaultGatewayURL,
		apiKey:     apiKey,
		registry:   registry,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Endpoint returns the query URL of the chain's subgraph.
func (c *Client) Endpoint(chainID uint64) (string, error) {
	info, err := c.registry.Get(chainID)
	if err != nil {
		return "", err
	}
	if info.SubgraphID == "" {
		return "", fmt.Errorf("%w: %d", ErrNoSubgraph, chainID)
	}
	return fmt.Sprintf("%s/%s/subgraphs/id/%s", c.gatewayURL, c.apiKey, info.SubgraphID), nil
}

// Query runs a GraphQL query and decodes its data field into out.
func (c *Client) Query(ctx context.Context, chainID uint64, query string, vars map[string]interface{}, out interface{}) error {
	endpoint, err := c.Endpoint(chainID)
	if err != nil {
		return err
	}
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("subgraph query", zap.Uint64("chain_id", chainID))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; "))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}
