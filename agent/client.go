// Package agent collects container lifecycle reports from the local Docker
// daemon and submits them to the traceability server.
package agent

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

	"deploytrace/model"
)

// Client submits reports to the traceability server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a client for the server at the given base URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmitReport posts a single serialized report to /api/report.
func (c *Client) SubmitReport(ctx context.Context, report *model.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/report", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// SubmitContainerStatus posts a batch of raw container inspection payloads
// to /api/container-status. The server records one synthetic report per
// payload.
func (c *Client) SubmitContainerStatus(ctx context.Context, payloads []json.RawMessage, hostID, hostName, environment string) error {
	inspectData, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("failed to serialize inspect data: %w", err)
	}

	form := url.Values{}
	form.Set("inspectData", string(inspectData))
	form.Set("hostId", hostID)
	form.Set("hostName", hostName)
	if environment != "" {
		form.Set("environment", environment)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/container-status", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
