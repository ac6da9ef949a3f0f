package aggregator

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

func TestClientQuote(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v5.2/1/swap" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("amount") != "1000000" || q.Get("slippage") != "0.5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("disableEstimate") != "true" || q.Get("allowPartialFill") != "false" {
			t.Errorf("missing swap flags %s", r.URL.RawQuery)
		}
		if !strings.EqualFold(q.Get("from"), from.Hex()) {
			t.Errorf("unexpected from %s", q.Get("from"))
		}
		w.Write([]byte(`{"toAmount":"512","tx":{"to":"0x2222222222222222222222222222222222222222","data":"0xabcd","value":"0"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMinInterval(time.Millisecond), WithMetrics(NewMetrics(prometheus.NewRegistry())))
	quote, err := client.Quote(context.Background(), 1, usdc, weth, big.NewInt(1_000_000), from, 0.005)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.ToAmount.Int64() != 512 {
		t.Fatalf("toAmount mismatch: %s", quote.ToAmount)
	}
	if quote.To != common.HexToAddress("0x2222222222222222222222222222222222222222") {
		t.Fatalf("router mismatch: %s", quote.To.Hex())
	}
	if len(quote.Data) != 2 || quote.Data[0] != 0xab {
		t.Fatalf("data mismatch: %x", quote.Data)
	}
}

func TestClientRejectsZeroAmount(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Quote(context.Background(), 1, usdc, weth, big.NewInt(0), common.Address{}, 0.01)
	if !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("zero amount must not reach the network")
	}
}

func TestClientApproveTargetAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swap/v5.2/10/approve/spender":
			w.Write([]byte(`{"address":"0x1111111254eeb25477b68fb85ed929f73a960582"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"description":"rate limited"}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMinInterval(time.Millisecond))
	target, err := client.ApproveTarget(context.Background(), 10)
	if err != nil {
		t.Fatalf("approve target: %v", err)
	}
	if target != common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582") {
		t.Fatalf("target mismatch: %s", target.Hex())
	}

	if _, err := client.Quote(context.Background(), 10, usdc, weth, big.NewInt(1), common.Address{}, 0.01); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClientSpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":"0x1111111254eeb25477b68fb85ed929f73a960582"}`))
	}))
	defer server.Close()

	interval := 100 * time.Millisecond
	client := NewClient(server.URL, WithMinInterval(interval))
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.ApproveTarget(context.Background(), 1); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*interval-10*time.Millisecond {
		t.Fatalf("requests not spaced: %s", elapsed)
	}
}

func TestClientWaitHonorsCancellation(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Write([]byte(`{"address":"0x1111111254eeb25477b68fb85ed929f73a960582"}`))
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithMinInterval(time.Millisecond))
	done := make(chan error, 1)
	go func() {
		_, err := client.ApproveTarget(context.Background(), 1)
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.ApproveTarget(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("queued request ignored its context for %s", elapsed)
	}

	release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("in-flight request: %v", err)
	}
}
