package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/httpx"
)

func newTestClient(baseURL string) *Client {
	return New(httpx.New(2*time.Second, 0), baseURL, "test-key")
}

func estimateRequest() EstimateRequest {
	return EstimateRequest{
		SrcChainID:   8453,
		SrcToken:     "0x1111111111111111111111111111111111111111",
		SrcAmountWei: "100000000",
		DestToken:    "0x2222222222222222222222222222222222222222",
		DestChainID:  48900,
		SlippageBps:  50,
		UserAccount:  "0x3333333333333333333333333333333333333333",
		DestReceiver: "0x3333333333333333333333333333333333333333",
	}
}

func TestEstimateParsesTxPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"trade": {
					"tradeId": "trade-1",
					"destTokenAmount": "990000",
					"destTokenMinAmount": "980000",
					"spender": "0x4444444444444444444444444444444444444444",
					"fees": [{"amount": "1000"}, {"amount": "2000"}]
				},
				"tx": {"to": "0x5555555555555555555555555555555555555555", "data": "0xdeadbeef", "value": "0"}
			}
		}`))
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).Estimate(context.Background(), estimateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.QuoteID != "trade-1" {
		t.Fatalf("quote id = %q", quote.QuoteID)
	}
	if quote.ExpectedOutput != "990000" || quote.MinimumOutput != "980000" {
		t.Fatalf("outputs = %q / %q", quote.ExpectedOutput, quote.MinimumOutput)
	}
	if quote.Spender != "0x4444444444444444444444444444444444444444" {
		t.Fatalf("spender = %q", quote.Spender)
	}
	if quote.Payload.To != "0x5555555555555555555555555555555555555555" {
		t.Fatalf("payload to = %q", quote.Payload.To)
	}
	if len(quote.Fees) != 2 {
		t.Fatalf("fees = %d, want 2", len(quote.Fees))
	}
	if quote.SourceChainID != 8453 {
		t.Fatalf("source chain = %d", quote.SourceChainID)
	}
}

func TestEstimateAcceptsLegacyTxDataAlias(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"trade": {"tradeId": "trade-2", "destTokenAmount": "1", "destTokenMinAmount": "1"},
				"txData": {"to": "0x6666666666666666666666666666666666666666", "data": "0x", "value": "0"}
			}
		}`))
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).Estimate(context.Background(), estimateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Payload.To != "0x6666666666666666666666666666666666666666" {
		t.Fatalf("payload to = %q", quote.Payload.To)
	}
	if quote.Spender != "0x6666666666666666666666666666666666666666" {
		t.Fatalf("spender should fall back to the payload target, got %q", quote.Spender)
	}
}

func TestEstimateFailsClosedWithoutPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"trade": {"tradeId": "trade-3", "destTokenAmount": "1", "destTokenMinAmount": "1"}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Estimate(context.Background(), estimateRequest())
	if clierr.CodeOf(err) != clierr.CodeQuote {
		t.Fatalf("error code = %d, want quote failure; err=%v", clierr.CodeOf(err), err)
	}
}

func TestEstimateSurfacesUpstreamMessageVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "amount below minimum for route"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Estimate(context.Background(), estimateRequest())
	if clierr.CodeOf(err) != clierr.CodeQuote {
		t.Fatalf("error code = %d; err=%v", clierr.CodeOf(err), err)
	}
	typed, _ := clierr.As(err)
	if typed.Message != "amount below minimum for route" {
		t.Fatalf("message = %q, want the upstream wording unchanged", typed.Message)
	}
}

func TestStatusReturnsBodyVerbatim(t *testing.T) {
	const body = `{"status": "PENDING", "detail": {"hops": 2}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("txHash"); got != "0xabc" {
			t.Errorf("txHash = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).Status(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "PENDING" {
		t.Fatalf("status = %q", status.Status)
	}
	if string(status.Body) != body {
		t.Fatalf("body = %q, want it preserved verbatim", string(status.Body))
	}
}

func TestStatusRequiresTxHash(t *testing.T) {
	_, _, err := newTestClient("http://127.0.0.1:0").StatusRaw(context.Background(), " ")
	if clierr.CodeOf(err) != clierr.CodeUsage {
		t.Fatalf("error code = %d, want usage", clierr.CodeOf(err))
	}
}

func TestPollSettlementUntilTerminal(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status": "PENDING"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "DONE"}`))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).PollSettlement(context.Background(), "0xabc", 10*time.Millisecond, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "DONE" {
		t.Fatalf("status = %q", status.Status)
	}
	if calls.Load() < 3 {
		t.Fatalf("calls = %d, want the poller to keep going through pending states", calls.Load())
	}
}

func TestPollSettlementFailedIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "FAILED"}`))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).PollSettlement(context.Background(), "0xabc", 10*time.Millisecond, 5*time.Second)
	if clierr.CodeOf(err) != clierr.CodeExecution {
		t.Fatalf("error code = %d; err=%v", clierr.CodeOf(err), err)
	}
	if status.Status != "FAILED" {
		t.Fatalf("status = %q", status.Status)
	}
}
