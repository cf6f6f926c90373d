// Package beckn is a thin client for a Beckn BAP sandbox, used to
// discover and book flexibility windows on the energy marketplace.
// The decision engine never calls it; only the orchestration layer
// relays chosen windows onward.
package beckn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sandbox defaults.
const (
	DefaultBaseURL = "https://deg-hackathon-bap-sandbox.becknprotocol.io/api"
	DefaultBapID   = "ev-charging.sandbox1.com"
	DefaultBapURI  = "https://ev-charging.sandbox1.com.com/bap"

	domain  = "beckn.one:DEG:compute-energy:1.0"
	version = "2.0.0"
)

// Context is the Beckn envelope context.
type Context struct {
	Version       string `json:"version"`
	Action        string `json:"action"`
	Domain        string `json:"domain"`
	Timestamp     string `json:"timestamp"`
	MessageID     string `json:"message_id"`
	TransactionID string `json:"transaction_id"`
	BapID         string `json:"bap_id"`
	BapURI        string `json:"bap_uri"`
	TTL           string `json:"ttl"`
}

// Envelope is a generic Beckn request/response body.
type Envelope struct {
	Context Context        `json:"context"`
	Message map[string]any `json:"message"`
}

// Client talks to the BAP sandbox.
type Client struct {
	baseURL string
	bapID   string
	bapURI  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client against the given BAP endpoint.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		bapID:   DefaultBapID,
		bapURI:  DefaultBapURI,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *Client) newContext(action, transactionID string) Context {
	if transactionID == "" {
		transactionID = uuid.NewString()
	}
	return Context{
		Version:       version,
		Action:        action,
		Domain:        domain,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MessageID:     uuid.NewString(),
		TransactionID: transactionID,
		BapID:         c.bapID,
		BapURI:        c.bapURI,
		TTL:           "PT30S",
	}
}

// Discover finds available compute energy windows. A minimum renewable
// percentage, when positive, is applied as a catalog filter.
func (c *Client) Discover(ctx context.Context, renewableMin float64) (*Envelope, error) {
	message := map[string]any{
		"text_search": "Grid flexibility windows",
	}
	if renewableMin > 0 {
		message["filters"] = map[string]any{
			"type": "jsonpath",
			"expression": fmt.Sprintf(
				"$[?(@.beckn:itemAttributes.beckn:gridParameters.renewableMix >= %g)]", renewableMin),
		}
	}
	return c.post(ctx, "/discover", Envelope{
		Context: c.newContext("discover", ""),
		Message: message,
	})
}

// Select picks an item from a discovered catalog.
func (c *Client) Select(ctx context.Context, transactionID, providerID, itemID string) (*Envelope, error) {
	return c.post(ctx, "/select", Envelope{
		Context: c.newContext("select", transactionID),
		Message: map[string]any{
			"order": map[string]any{
				"provider": map[string]any{"id": providerID},
				"items":    []map[string]any{{"id": itemID}},
			},
		},
	})
}

// Init initializes an order for the selected window.
func (c *Client) Init(ctx context.Context, transactionID, providerID, itemID string) (*Envelope, error) {
	return c.post(ctx, "/init", Envelope{
		Context: c.newContext("init", transactionID),
		Message: map[string]any{
			"order": map[string]any{
				"provider": map[string]any{"id": providerID},
				"items":    []map[string]any{{"id": itemID}},
			},
		},
	})
}

// Confirm books the initialized order.
func (c *Client) Confirm(ctx context.Context, transactionID, providerID, itemID string) (*Envelope, error) {
	return c.post(ctx, "/confirm", Envelope{
		Context: c.newContext("confirm", transactionID),
		Message: map[string]any{
			"order": map[string]any{
				"provider": map[string]any{"id": providerID},
				"items":    []map[string]any{{"id": itemID}},
			},
		},
	})
}

// UpdateWorkloadShift reports a deferred workload's new window against an
// existing order.
func (c *Client) UpdateWorkloadShift(ctx context.Context, transactionID, orderID string, deferUntil time.Time, capacityKWh float64) (*Envelope, error) {
	return c.post(ctx, "/update", Envelope{
		Context: c.newContext("update", transactionID),
		Message: map[string]any{
			"update_target": "order.fulfillment",
			"order": map[string]any{
				"id": orderID,
				"fulfillment": map[string]any{
					"start":        deferUntil.UTC().Format(time.RFC3339),
					"capacity_kwh": capacityKWh,
				},
			},
		},
	})
}

func (c *Client) post(ctx context.Context, path string, payload Envelope) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal beckn payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create beckn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call beckn %s: %w", payload.Context.Action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("beckn %s status: %s", payload.Context.Action, resp.Status)
	}

	var out Envelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode beckn response: %w", err)
	}

	c.logger.Info("beckn call succeeded",
		"action", payload.Context.Action,
		"transaction_id", payload.Context.TransactionID)
	return &out, nil
}
