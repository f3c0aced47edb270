package pinetwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/infra/metrics"
)

var _ adapter.PaymentNetwork = (*Gateway)(nil)

const defaultBaseURL = "https://api.minepi.com"

// Gateway implements adapter.PaymentNetwork against the Pi platform REST API.
type Gateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGateway(apiKey, baseURL string) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("pi api key empty")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *Gateway) Name() string { return "pi_network" }

func (g *Gateway) Approve(ctx context.Context, paymentID string) (*adapter.NetworkPayment, error) {
	return g.call(ctx, "approve", http.MethodPost, "/v2/payments/"+paymentID+"/approve", nil)
}

func (g *Gateway) Get(ctx context.Context, paymentID string) (*adapter.NetworkPayment, error) {
	return g.call(ctx, "get", http.MethodGet, "/v2/payments/"+paymentID, nil)
}

func (g *Gateway) Complete(ctx context.Context, paymentID, txid string) (*adapter.NetworkPayment, error) {
	body := map[string]string{"txid": txid}
	return g.call(ctx, "complete", http.MethodPost, "/v2/payments/"+paymentID+"/complete", body)
}

// paymentEnvelope mirrors the platform's payment payload; Status keeps the
// raw encoding so normalizeStatus can handle both shapes.
type paymentEnvelope struct {
	Identifier  string          `json:"identifier"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
	Status      json.RawMessage `json:"status"`
	Transaction *struct {
		TxID string `json:"txid"`
	} `json:"transaction"`
}

func (g *Gateway) call(ctx context.Context, op, method, path string, body any) (*adapter.NetworkPayment, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncNetworkCall(op, "error")
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncNetworkCall(op, "error")
		// Keep the upstream body; it is the only diagnostic we get.
		return nil, fmt.Errorf("pi network %s %s: http %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(payload))
	}
	metrics.IncNetworkCall(op, "ok")

	var env paymentEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("pi network decode: %w", err)
	}

	np := &adapter.NetworkPayment{
		Identifier: env.Identifier,
		Amount:     env.Amount,
		Memo:       env.Memo,
		Status:     normalizeStatus(env.Status),
		Raw:        json.RawMessage(payload),
	}
	if env.Transaction != nil {
		np.TxID = env.Transaction.TxID
	}
	return np, nil
}
