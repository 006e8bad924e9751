package commands

import (
	"context"
	"fmt"
	"time"
)

type ScanCmd struct {
	Server       string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token        string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	CredentialID string        `arg:"" help:"Scanned credential"`
	GateID       string        `help:"Gate where the credential was scanned" required:""`
	Timeout      time.Duration `help:"HTTP timeout" default:"30s"`
}

func (c *ScanCmd) Run(ctx context.Context, globals *Globals) error {
	api := newAPIClient(c.Server, c.Token, c.Timeout)

	var resp struct {
		Dismissals []dismissalView `json:"dismissals"`
	}
	err := api.do(ctx, "POST", "/v1/dismissals/scan", map[string]string{
		"credential_id": c.CredentialID,
		"gate_id":       c.GateID,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Printf("Created %d dismissal(s)\n", len(resp.Dismissals))
	for _, d := range resp.Dismissals {
		printDismissal(d)
	}
	return nil
}

type RequestCmd struct {
	Server    string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token     string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	StudentID string        `arg:"" help:"Student to pick up"`
	Timeout   time.Duration `help:"HTTP timeout" default:"30s"`
}

func (c *RequestCmd) Run(ctx context.Context, globals *Globals) error {
	api := newAPIClient(c.Server, c.Token, c.Timeout)

	var d dismissalView
	err := api.do(ctx, "POST", "/v1/dismissals/request", map[string]string{
		"student_id": c.StudentID,
	}, &d)
	if err != nil {
		return err
	}

	printDismissal(d)
	return nil
}

type AdvanceCmd struct {
	Server      string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token       string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	DismissalID string        `arg:"" help:"Dismissal to advance"`
	Target      string        `arg:"" help:"Target status (ready, completed or cancelled)"`
	Timeout     time.Duration `help:"HTTP timeout" default:"30s"`
}

func (c *AdvanceCmd) Run(ctx context.Context, globals *Globals) error {
	api := newAPIClient(c.Server, c.Token, c.Timeout)

	var d dismissalView
	path := fmt.Sprintf("/v1/dismissals/%s/advance", c.DismissalID)
	err := api.do(ctx, "POST", path, map[string]string{"target": c.Target}, &d)
	if err != nil {
		return err
	}

	printDismissal(d)
	return nil
}

type ConfirmCmd struct {
	Server      string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token       string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	DismissalID string        `arg:"" help:"Dismissal to confirm"`
	Timeout     time.Duration `help:"HTTP timeout" default:"30s"`
}

func (c *ConfirmCmd) Run(ctx context.Context, globals *Globals) error {
	api := newAPIClient(c.Server, c.Token, c.Timeout)

	var d dismissalView
	path := fmt.Sprintf("/v1/dismissals/%s/confirm", c.DismissalID)
	err := api.do(ctx, "POST", path, nil, &d)
	if err != nil {
		return err
	}

	printDismissal(d)
	return nil
}

type ActiveCmd struct {
	Server  string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token   string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	OrgID   string        `help:"Organization to query (platform operators only)"`
	ClassID string        `help:"Filter by class"`
	Timeout time.Duration `help:"HTTP timeout" default:"30s"`
}

func (c *ActiveCmd) Run(ctx context.Context, globals *Globals) error {
	api := newAPIClient(c.Server, c.Token, c.Timeout)

	path := "/v1/dismissals/active"
	sep := "?"
	if c.OrgID != "" {
		path += sep + "org_id=" + c.OrgID
		sep = "&"
	}
	if c.ClassID != "" {
		path += sep + "class_id=" + c.ClassID
	}

	var resp struct {
		Dismissals []dismissalView `json:"dismissals"`
	}
	if err := api.do(ctx, "GET", path, nil, &resp); err != nil {
		return err
	}

	fmt.Printf("%d active dismissal(s)\n", len(resp.Dismissals))
	for _, d := range resp.Dismissals {
		printDismissal(d)
	}
	return nil
}
