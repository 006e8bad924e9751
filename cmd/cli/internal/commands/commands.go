package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Globals struct {
	Debug   bool
	Version string
}

// apiClient is a thin JSON client for the server's HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// dismissalView mirrors the server's dismissal response for display.
type dismissalView struct {
	DismissalID string  `json:"dismissal_id"`
	StudentID   string  `json:"student_id"`
	GuardianID  string  `json:"guardian_id"`
	OrgID       string  `json:"org_id"`
	GateID      *string `json:"gate_id,omitempty"`
	Status      string  `json:"status"`
	ScannedAt   string  `json:"scanned_at"`
}

func printDismissal(d dismissalView) {
	gate := "-"
	if d.GateID != nil {
		gate = *d.GateID
	}
	fmt.Printf("%-36s  %-10s  student=%s  gate=%s\n", d.DismissalID, d.Status, d.StudentID, gate)
}
