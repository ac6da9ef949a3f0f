package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/chaininfo"
)

var usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(apiKey, chaininfo.NewRegistry(), WithBaseURL(server.URL))
}

func TestTokenPrice(t *testing.T) {
	info, err := chaininfo.NewRegistry().Get(chaininfo.Ethereum)
	if err != nil {
		t.Fatalf("chain info: %v", err)
	}
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/token_price/"+info.CoinGeckoPlatform {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != "secret" {
			t.Errorf("api key header missing")
		}
		if got := r.URL.Query().Get("contract_addresses"); got != strings.ToLower(usdc.Hex()) {
			t.Errorf("unexpected contract_addresses %q", got)
		}
		fmt.Fprintf(w, `{"%s":{"usd":0.999812}}`, strings.ToLower(usdc.Hex()))
	})

	price, err := client.TokenPrice(context.Background(), chaininfo.Ethereum, usdc, "USD")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.String() != "0.999812" {
		t.Fatalf("unexpected price %s", price)
	}
}

func TestTokenPriceMissing(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(apiKeyHeader) != "" {
			t.Errorf("public requests carry no key")
		}
		fmt.Fprint(w, `{}`)
	})
	_, err := client.TokenPrice(context.Background(), chaininfo.Ethereum, usdc, "")
	if !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected ErrPriceNotFound, got %v", err)
	}
}

func TestTokenPricesBatch(t *testing.T) {
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if got := strings.Split(r.URL.Query().Get("contract_addresses"), ","); len(got) != 2 {
			t.Errorf("expected one batched request, got %v", got)
		}
		fmt.Fprintf(w, `{"%s":{"usd":1},"%s":{"usd":"2061.5"}}`, strings.ToLower(usdc.Hex()), strings.ToLower(weth.Hex()))
	})
	prices, err := client.TokenPrices(context.Background(), chaininfo.Ethereum, []common.Address{usdc, weth}, "usd")
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	if prices[weth].String() != "2061.5" || prices[usdc].String() != "1" {
		t.Fatalf("unexpected prices %v", prices)
	}
}

func TestNativePrice(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "ethereum" {
			t.Errorf("unexpected ids %q", r.URL.Query().Get("ids"))
		}
		fmt.Fprint(w, `{"ethereum":{"usd":2050.1}}`)
	})
	price, err := client.NativePrice(context.Background(), chaininfo.Ethereum, "usd")
	if err != nil {
		t.Fatalf("native price: %v", err)
	}
	if price.String() != "2050.1" {
		t.Fatalf("unexpected price %s", price)
	}
}

func TestHistoricalPrices(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/contract/"+strings.ToLower(usdc.Hex())+"/market_chart") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("days") != "7" {
			t.Errorf("unexpected days %q", r.URL.Query().Get("days"))
		}
		fmt.Fprint(w, `{"prices":[[1700000000000,1.001],[1700003600000,0.998]]}`)
	})
	points, err := client.HistoricalPrices(context.Background(), chaininfo.Ethereum, usdc, "usd", 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Time.Equal(time.Unix(1700000000, 0)) || points[1].Price.String() != "0.998" {
		t.Fatalf("unexpected points %+v", points)
	}
}

func TestHTTPErrorPropagates(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := client.NativePrice(context.Background(), chaininfo.Ethereum, "usd")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
