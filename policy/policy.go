package policy

import (
	"context"
	"fmt"
	"strings"
)

// Continuation modes applied after a handled step failure
const (
	// ContinueWithLastResult resumes the flow with the failed step's last
	// recorded result, or nil when it never produced one (default)
	ContinueWithLastResult = "continue-with-last-result"
	// AbortAfterHandled stops the flow and returns the failure marked handled
	AbortAfterHandled = "abort-after-handled-error"
)

// Policy selects the continuation mode, optionally per step
type Policy struct {
	Mode  string            // default mode (ContinueWithLastResult when empty)
	Steps map[string]string // per step overrides
}

// Config is the serialisable form of a Policy
type Config struct {
	Mode  string            `json:"mode,omitempty" yaml:"mode,omitempty"`
	Steps map[string]string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Validate checks modes
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := validateMode(c.Mode); err != nil {
		return err
	}
	for step, mode := range c.Steps {
		if err := validateMode(mode); err != nil {
			return fmt.Errorf("step %v: %w", step, err)
		}
	}
	return nil
}

func validateMode(mode string) error {
	switch Normalize(mode) {
	case "", ContinueWithLastResult, AbortAfterHandled:
		return nil
	}
	return fmt.Errorf("unsupported continuation mode: %q", mode)
}

// Normalize lower-cases mode and accepts the short aliases continue and abort
func Normalize(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "continue":
		return ContinueWithLastResult
	case "abort":
		return AbortAfterHandled
	}
	return mode
}

// FromConfig converts a config into a policy
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	ret := &Policy{Mode: Normalize(c.Mode), Steps: map[string]string{}}
	for step, mode := range c.Steps {
		ret.Steps[step] = Normalize(mode)
	}
	return ret
}

// ToConfig converts a policy into its serialisable form
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	ret := &Config{Mode: p.Mode}
	if len(p.Steps) > 0 {
		ret.Steps = map[string]string{}
		for step, mode := range p.Steps {
			ret.Steps[step] = mode
		}
	}
	return ret
}

// ModeFor returns the continuation mode for step. A nil policy continues.
func (p *Policy) ModeFor(step string) string {
	if p == nil {
		return ContinueWithLastResult
	}
	if mode, ok := p.Steps[step]; ok && mode != "" {
		return Normalize(mode)
	}
	if p.Mode == "" {
		return ContinueWithLastResult
	}
	return Normalize(p.Mode)
}

// Aborts reports whether a handled failure of step stops the flow
func (p *Policy) Aborts(step string) bool {
	return p.ModeFor(step) == AbortAfterHandled
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext returns the policy carried by ctx or nil
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
