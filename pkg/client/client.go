package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Item is one row of a tenant's items table as returned by the portal API.
// Tenant tables carry arbitrary columns, so rows stay generic.
type Item map[string]interface{}

// Profile is the authenticated user payload returned by the login endpoint.
type Profile struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Items       []Item `json:"items"`
}

// APIError is a non-2xx response from the portal API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("portal API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("portal API error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the portal HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a portal API client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// Login submits credentials and returns the user profile on success. Failures
// carry the server's status code and message as an *APIError.
func (c *Client) Login(ctx context.Context, email, password string) (*Profile, error) {
	c.Logger.Info("Logging in", zap.String("email", email))

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Login request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var payload struct {
		Success bool     `json:"success"`
		User    *Profile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.Success || payload.User == nil {
		return nil, errors.New("login response missing user payload")
	}
	if payload.User.Items == nil {
		payload.User.Items = []Item{}
	}

	c.Logger.Info("Login succeeded",
		zap.String("email", payload.User.Email),
		zap.String("company_name", payload.User.CompanyName),
		zap.Int("item_count", len(payload.User.Items)))

	return payload.User, nil
}

// GetItems fetches the current item list for a company.
func (c *Client) GetItems(ctx context.Context, companyName string) ([]Item, error) {
	q := url.Values{}
	q.Set("companyName", companyName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/items/getItems?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Item fetch request failed",
			zap.String("company_name", companyName),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var payload struct {
		Success bool   `json:"success"`
		Items   []Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, errors.New("item lookup reported failure")
	}
	if payload.Items == nil {
		payload.Items = []Item{}
	}

	return payload.Items, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	c.Logger.Error("Portal API returned error",
		zap.Int("status_code", apiErr.StatusCode),
		zap.String("code", apiErr.Code),
		zap.String("message", apiErr.Message))

	return apiErr
}
