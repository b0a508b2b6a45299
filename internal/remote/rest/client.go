package rest

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

	"go.uber.org/zap"

	envConfig "github.com/cipherhq/ticketrack-sub010/internal/config"
	"github.com/cipherhq/ticketrack-sub010/internal/domain"
	"github.com/cipherhq/ticketrack-sub010/internal/remote"
)

// Client implements remote.TicketAuthority over the ticketing backend's REST
// API. Every call carries the configured timeout.
type Client struct {
	httpClient *http.Client
	config     envConfig.Remote
	log        *zap.Logger
}

// NewClient creates a new remote authority client
func NewClient(remoteConfig envConfig.Remote, log *zap.Logger) (*Client, error) {
	if remoteConfig.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}

	timeout := time.Duration(remoteConfig.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log.Info("Remote authority client created",
		zap.String("base_url", remoteConfig.BaseURL),
		zap.Duration("timeout", timeout))

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     remoteConfig,
		log:        log,
	}, nil
}

// FetchTicket returns the authoritative check-in state of a ticket
func (c *Client) FetchTicket(ctx context.Context, ticketID string) (*remote.TicketState, error) {
	var state remote.TicketState
	path := fmt.Sprintf("/api/tickets/%s", url.PathEscape(ticketID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// UpdateTicketCheckIn applies a check-in state change to a remote ticket
func (c *Client) UpdateTicketCheckIn(ctx context.Context, ticketID string, update remote.CheckInUpdate) error {
	path := fmt.Sprintf("/api/tickets/%s/checkin", url.PathEscape(ticketID))
	return c.doJSON(ctx, http.MethodPatch, path, update, nil)
}

// FetchEventMeta returns the remote event snapshot
func (c *Client) FetchEventMeta(ctx context.Context, eventID string) (*remote.EventMeta, error) {
	var meta remote.EventMeta
	path := fmt.Sprintf("/api/events/%s", url.PathEscape(eventID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FetchEventTickets returns the event's tickets filtered to the given payment
// statuses, ordered by attendee name
func (c *Client) FetchEventTickets(ctx context.Context, eventID string, paymentStatuses []string) ([]domain.CachedTicket, error) {
	query := url.Values{}
	if len(paymentStatuses) > 0 {
		query.Set("payment_status", strings.Join(paymentStatuses, ","))
	}
	query.Set("order", "attendee_name")

	path := fmt.Sprintf("/api/events/%s/tickets?%s", url.PathEscape(eventID), query.Encode())

	var tickets []domain.CachedTicket
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return remote.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Remote authority returned an error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
