package lunch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// Client calls the lunch service over HTTP. Every call is bounded by the
// configured timeout on top of the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

func lunchesPath(childID string) string {
	return "/children/" + url.PathEscape(childID) + "/lunches"
}

// ListOrders fetches the child's orders, including soft-deleted ones.
func (c *Client) ListOrders(ctx context.Context, childID string) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, lunchesPath(childID)+"?includeDeleted=true", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder places an order for the child.
func (c *Client) CreateOrder(ctx context.Context, childID string, req OrderRequest) (Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, lunchesPath(childID), req, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// DeleteOrder removes the order on the lunch service.
func (c *Client) DeleteOrder(ctx context.Context, childID, orderID string) error {
	return c.do(ctx, http.MethodDelete, lunchesPath(childID)+"/"+url.PathEscape(orderID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lunch service %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
