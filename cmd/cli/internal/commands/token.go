package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/auth"
)

type TokenCmd struct {
	PrivateKey  string        `help:"path to the ES256 private key PEM" required:"" env:"GATEPASS_JWT_PRIVATE_KEY"`
	PrincipalID string        `arg:"" help:"Principal the token identifies"`
	TTL         time.Duration `help:"Token lifetime" default:"24h"`
}

func (t *TokenCmd) Run(ctx context.Context, globals *Globals) error {
	principalID, err := uuid.Parse(t.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}

	key, err := os.ReadFile(t.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}

	token, err := auth.SignToken(string(key), principalID, t.TTL)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
