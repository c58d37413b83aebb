package scripted

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"gqlbridge/internal/engine"
)

// Profile names one resolver script a session can be acquired against.
type Profile struct {
	Name    string
	Script  string // path to the resolver script
	Default bool
}

// Connector acquires script-backed sessions. Each Acquire loads the selected
// profile's script into a fresh runtime, so sessions are independent.
type Connector struct {
	profiles []Profile
	logger   zerolog.Logger
}

// NewConnector creates a Connector over the given profiles.
func NewConnector(profiles []Profile, logger zerolog.Logger) *Connector {
	return &Connector{
		profiles: profiles,
		logger:   logger.With().Str("component", "scripted").Logger(),
	}
}

// Acquire implements engine.Connector. useDefaultProfile selects the profile
// marked default; otherwise the first non-default profile is used. With a
// single profile configured both selections resolve to it.
func (c *Connector) Acquire(useDefaultProfile bool) (engine.Session, error) {
	profile, err := c.selectProfile(useDefaultProfile)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(profile.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver script: %w", err)
	}

	session, err := NewSession(profile.Name, string(source), c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("profile", profile.Name).Msg("session acquired")
	return session, nil
}

func (c *Connector) selectProfile(useDefault bool) (*Profile, error) {
	if len(c.profiles) == 0 {
		return nil, errors.New("no profiles configured")
	}
	if len(c.profiles) == 1 {
		return &c.profiles[0], nil
	}

	for i := range c.profiles {
		if c.profiles[i].Default == useDefault {
			return &c.profiles[i], nil
		}
	}
	return &c.profiles[0], nil
}
