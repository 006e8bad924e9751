package models

import (
	"fmt"
	"strconv"
)

// Ceiling is a plan resource limit: either a non-negative count or unlimited.
// The zero value is a ceiling of zero (nothing may be created), which forces
// plans to set limits explicitly.
type Ceiling struct {
	unlimited bool
	limit     int
}

// UnlimitedCeiling returns the sentinel ceiling that always allows creation.
func UnlimitedCeiling() Ceiling {
	return Ceiling{unlimited: true}
}

// CeilingOf returns a ceiling capped at n.
func CeilingOf(n int) Ceiling {
	return Ceiling{limit: n}
}

// Unlimited reports whether the ceiling is the unlimited sentinel.
func (c Ceiling) Unlimited() bool { return c.unlimited }

// Limit returns the numeric cap. Only meaningful when !Unlimited.
func (c Ceiling) Limit() int { return c.limit }

// String renders the ceiling the way it is persisted: a decimal count or the
// literal "unlimited".
func (c Ceiling) String() string {
	if c.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(c.limit)
}

// ParseCeiling parses the persisted representation produced by String.
func ParseCeiling(s string) (Ceiling, error) {
	if s == "unlimited" {
		return UnlimitedCeiling(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Ceiling{}, fmt.Errorf("invalid ceiling %q", s)
	}
	return CeilingOf(n), nil
}

// MarshalYAML implements yaml.Marshaler for plan config files.
func (c Ceiling) MarshalYAML() (any, error) {
	if c.unlimited {
		return "unlimited", nil
	}
	return c.limit, nil
}

// UnmarshalYAML implements yaml.Unmarshaler for plan config files, accepting
// either an integer or the string "unlimited".
func (c *Ceiling) UnmarshalYAML(unmarshal func(any) error) error {
	var n int
	if err := unmarshal(&n); err == nil {
		if n < 0 {
			return fmt.Errorf("invalid ceiling %d", n)
		}
		*c = CeilingOf(n)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseCeiling(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
