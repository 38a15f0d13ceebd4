package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradetok/copytrade/internal/errors"
	"github.com/tradetok/copytrade/internal/httpx"
	"github.com/tradetok/copytrade/internal/registry"
)

// Client talks to the trading engine's aggregation API: route estimates and
// settlement status. One Client is shared by the CLI and the proxy.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = registry.EngineBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		now:     time.Now,
	}
}

// EstimateRequest is the engine's quote request body.
type EstimateRequest struct {
	SrcChainID   int64  `json:"srcChainId"`
	SrcToken     string `json:"srcToken"`
	SrcAmountWei string `json:"srcAmountWei"`
	DestToken    string `json:"destToken"`
	DestChainID  int64  `json:"destChainId"`
	SlippageBps  int64  `json:"slippageBps"`
	UserAccount  string `json:"userAccount"`
	DestReceiver string `json:"destReceiver"`
}

// TxPayload is the pre-built route transaction. It is submitted verbatim;
// to/data/value are opaque to this client.
type TxPayload struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

func (p TxPayload) Empty() bool {
	return strings.TrimSpace(p.To) == ""
}

type Fee struct {
	Amount string `json:"amount"`
}

// Quote is one route estimate. A quote is valid only until the intent or
// funding selection that produced it changes.
type Quote struct {
	QuoteID        string
	ExpectedOutput string
	MinimumOutput  string
	Fees           []Fee
	Spender        string
	Payload        TxPayload
	SourceChainID  int64
	FetchedAt      time.Time
}

type estimateResponse struct {
	Data struct {
		Trade struct {
			TradeID            string `json:"tradeId"`
			DestTokenAmount    string `json:"destTokenAmount"`
			DestTokenMinAmount string `json:"destTokenMinAmount"`
			Spender            string `json:"spender"`
			Fees               []Fee  `json:"fees"`
		} `json:"trade"`
		Tx     *TxPayload `json:"tx"`
		TxData *TxPayload `json:"txData"`
	} `json:"data"`
	Error string `json:"error"`
}

// Estimate requests a route quote. Upstream rejections surface their
// message verbatim as a quote failure. The response's transaction payload
// may arrive under either `data.tx` or the legacy `data.txData`; if neither
// is present the quote fails closed.
func (c *Client) Estimate(ctx context.Context, req EstimateRequest) (Quote, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Quote{}, errors.Wrap(errors.CodeInternal, "encode estimate request", err)
	}
	status, raw, err := c.EstimateRaw(ctx, body)
	if err != nil {
		return Quote{}, err
	}
	if status < 200 || status >= 300 {
		return Quote{}, errors.New(errors.CodeQuote, upstreamMessage(raw, status))
	}

	var resp estimateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Quote{}, errors.Wrap(errors.CodeQuote, "decode estimate response", err)
	}
	if strings.TrimSpace(resp.Error) != "" {
		return Quote{}, errors.New(errors.CodeQuote, resp.Error)
	}

	payload := TxPayload{}
	switch {
	case resp.Data.Tx != nil && !resp.Data.Tx.Empty():
		payload = *resp.Data.Tx
	case resp.Data.TxData != nil && !resp.Data.TxData.Empty():
		payload = *resp.Data.TxData
	default:
		return Quote{}, errors.New(errors.CodeQuote, "quote response has no transaction payload")
	}

	spender := strings.TrimSpace(resp.Data.Trade.Spender)
	if spender == "" {
		// Routers without a dedicated spender pull funds at the payload
		// target.
		spender = strings.TrimSpace(payload.To)
	}

	return Quote{
		QuoteID:        resp.Data.Trade.TradeID,
		ExpectedOutput: resp.Data.Trade.DestTokenAmount,
		MinimumOutput:  resp.Data.Trade.DestTokenMinAmount,
		Fees:           resp.Data.Trade.Fees,
		Spender:        spender,
		Payload:        payload,
		SourceChainID:  req.SrcChainID,
		FetchedAt:      c.now().UTC(),
	}, nil
}

// EstimateRaw forwards an estimate body unmodified and returns the upstream
// status and body. The proxy uses this for verbatim passthrough.
func (c *Client) EstimateRaw(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := httpx.NewJSONRequest(ctx, http.MethodPost, c.baseURL+registry.EngineEstimatePath, body)
	if err != nil {
		return 0, nil, err
	}
	c.authorize(req)
	return c.http.DoRaw(ctx, req)
}

// StatusRaw fetches settlement status for a submitted transaction hash and
// returns the upstream JSON verbatim.
func (c *Client) StatusRaw(ctx context.Context, txHash string) (int, []byte, error) {
	if strings.TrimSpace(txHash) == "" {
		return 0, nil, errors.New(errors.CodeUsage, "txHash is required")
	}
	endpoint := c.baseURL + registry.EngineStatusPath + "?txHash=" + url.QueryEscape(txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, errors.Wrap(errors.CodeInternal, "build status request", err)
	}
	c.authorize(req)
	return c.http.DoRaw(ctx, req)
}

// SettlementStatus is the parsed slice of a status response the poller
// inspects; the full body is preserved for display.
type SettlementStatus struct {
	Status string
	Body   json.RawMessage
}

func (c *Client) Status(ctx context.Context, txHash string) (SettlementStatus, error) {
	status, raw, err := c.StatusRaw(ctx, txHash)
	if err != nil {
		return SettlementStatus{}, err
	}
	if status < 200 || status >= 300 {
		return SettlementStatus{}, errors.New(errors.CodeUnavailable, upstreamMessage(raw, status))
	}
	var parsed struct {
		Status string `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return SettlementStatus{}, errors.Wrap(errors.CodeUnavailable, "decode status response", err)
	}
	state := parsed.Status
	if state == "" {
		state = parsed.Data.Status
	}
	return SettlementStatus{Status: state, Body: json.RawMessage(raw)}, nil
}

// PollSettlement polls the status endpoint until the settlement reaches a
// terminal state or the deadline passes. Settlement is informational: the
// session already succeeded when the hash was obtained.
func (c *Client) PollSettlement(ctx context.Context, txHash string, interval, deadline time.Duration) (SettlementStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if deadline <= 0 {
		deadline = 2 * time.Minute
	}
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last SettlementStatus
	for {
		status, err := c.Status(pollCtx, txHash)
		if err == nil {
			last = status
			switch strings.ToUpper(strings.TrimSpace(status.Status)) {
			case "DONE", "SUCCESS", "COMPLETED", "FILLED":
				return status, nil
			case "FAILED", "REFUNDED", "REVERTED":
				return status, errors.New(errors.CodeExecution, fmt.Sprintf("settlement failed with status %s", status.Status))
			}
		}
		select {
		case <-pollCtx.Done():
			return last, errors.Wrap(errors.CodeUnavailable, "timed out waiting for settlement", pollCtx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) authorize(req *http.Request) {
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// upstreamMessage extracts a human-readable message from an upstream error
// body, preferring a JSON {error} field and falling back to the raw text.
func upstreamMessage(raw []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if strings.TrimSpace(parsed.Error) != "" {
			return parsed.Error
		}
		if strings.TrimSpace(parsed.Message) != "" {
			return parsed.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if text != "" {
		return text
	}
	return fmt.Sprintf("engine returned status %d", status)
}
