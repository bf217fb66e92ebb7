package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client implements domain.TransferGateway over the banking
// aggregator's REST API. From the core's point of view a transfer is a
// single logical call; whatever retries or sub-steps the aggregator
// performs internally stay on its side of the wire.
type Client struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
}

// NewClient creates a new gateway client for the given aggregator base URL
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIToken:   apiToken,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type transferPayload struct {
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Description          string `json:"description"`
}

type transferResponse struct {
	AuthorizationCreated bool   `json:"authorization_created"`
	TransferID           string `json:"transfer_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExecuteTransfer performs the transfer as a single logical call.
// Non-2xx responses decode into *domain.GatewayError carrying the
// backend's raw code and message for the classifier; transport
// failures are returned as plain wrapped errors.
func (c *Client) ExecuteTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.GatewayResult, error) {
	payload := transferPayload{
		SourceAccountID:      req.SourceAccountID.String(),
		DestinationAccountID: req.DestinationAccountID.String(),
		Amount:               req.Amount.String(),
		Description:          req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call transfer gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gwErr); err != nil || gwErr.Code == "" {
			// The backend did not produce its usual error shape; keep
			// the status code so the classifier still has something.
			return nil, &domain.GatewayError{
				Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message: http.StatusText(resp.StatusCode),
			}
		}
		return nil, &domain.GatewayError{Code: gwErr.Code, Message: gwErr.Message}
	}

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transfer response: %w", err)
	}

	return &domain.GatewayResult{
		AuthorizationCreated: result.AuthorizationCreated,
		TransferID:           result.TransferID,
	}, nil
}

// Compile-time check: ensure Client implements domain.TransferGateway
var _ domain.TransferGateway = (*Client)(nil)
