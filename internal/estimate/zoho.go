package estimate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xoslabs/workforce/internal/domain"
	"golang.org/x/oauth2"
)

// ZohoClient creates draft estimates in Zoho Books. Each call is a single attempt.
type ZohoClient struct {
	baseURL    string
	orgID      string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

func NewZohoClient(cfg Config, tokens oauth2.TokenSource) *ZohoClient {
	return &ZohoClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		orgID:      cfg.OrgID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type lineItem struct {
	Name     string  `json:"name"`
	Rate     float64 `json:"rate"`
	Quantity int     `json:"quantity"`
}

type estimateRequest struct {
	CustomerID string     `json:"customer_id"`
	LineItems  []lineItem `json:"line_items"`
	Status     string     `json:"status"`
}

type estimateResponse struct {
	Code     int              `json:"code"`
	Message  string           `json:"message"`
	Estimate *domain.Estimate `json:"estimate"`
}

func (c *ZohoClient) CreateDraftEstimate(ctx context.Context, customerExternalID string) (*domain.Estimate, error) {
	if c.tokens == nil {
		return nil, ErrNoCredential
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredential, err)
	}

	body, err := json.Marshal(estimateRequest{
		CustomerID: customerExternalID,
		LineItems:  []lineItem{{Name: "New project", Rate: 1, Quantity: 1}},
		Status:     "draft",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal estimate request: %w", err)
	}

	endpoint := c.baseURL + "/books/v3/estimates?organization_id=" + url.QueryEscape(c.orgID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create estimate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+tok.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("estimate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read estimate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("estimate API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result estimateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal estimate response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("estimate API error %d: %s", result.Code, result.Message)
	}
	if result.Estimate == nil || result.Estimate.ID == "" {
		return nil, fmt.Errorf("estimate API returned no estimate id")
	}
	return result.Estimate, nil
}
