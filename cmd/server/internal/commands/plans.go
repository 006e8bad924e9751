package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
	"gopkg.in/yaml.v3"
)

// planFile seeds organizations and their plan ceilings at startup. Ceilings
// accept a count or the literal "unlimited".
type planFile struct {
	Organizations []planOrganization `yaml:"organizations"`
}

type planOrganization struct {
	OrgID              uuid.UUID      `yaml:"org_id"`
	Name               string         `yaml:"name"`
	SubscriptionStatus string         `yaml:"subscription_status"`
	TrialEndsAt        *time.Time     `yaml:"trial_ends_at,omitempty"`
	SubscriptionEndsAt *time.Time     `yaml:"subscription_ends_at,omitempty"`
	MaxStudents        models.Ceiling `yaml:"max_students"`
	MaxStaff           models.Ceiling `yaml:"max_staff"`
	MaxGates           models.Ceiling `yaml:"max_gates"`
}

// seedPlans creates the organizations listed in the plan file, skipping any
// that already exist, and returns the number created.
func seedPlans(ctx context.Context, path string, orgs store.OrganizationStore) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var plans planFile
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return 0, fmt.Errorf("invalid plan file: %w", err)
	}

	created := 0
	for _, p := range plans.Organizations {
		if p.OrgID == uuid.Nil {
			return created, fmt.Errorf("organization %q is missing org_id", p.Name)
		}

		status := models.SubscriptionStatus(p.SubscriptionStatus)
		if status == "" {
			status = models.SubscriptionTrial
		}

		now := time.Now()
		org := &models.Organization{
			OrgID:              p.OrgID,
			Name:               p.Name,
			Active:             true,
			SubscriptionStatus: status,
			TrialEndsAt:        p.TrialEndsAt,
			SubscriptionEndsAt: p.SubscriptionEndsAt,
			MaxStudents:        p.MaxStudents,
			MaxStaff:           p.MaxStaff,
			MaxGates:           p.MaxGates,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		err := orgs.Create(ctx, org)
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}
