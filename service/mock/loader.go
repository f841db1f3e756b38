package mock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

type behaviorSpec struct {
	Success     interface{} `yaml:"success,omitempty"`
	Failure     string      `yaml:"failure,omitempty"`
	Delay       string      `yaml:"delay,omitempty"`
	Probability *float64    `yaml:"probability,omitempty"`
}

// Load reads a YAML mock configuration:
//
//	charge:
//	  failure: card declined
//	  probability: 0
//	ship:
//	  delay: 50ms
//	  success: {trackingId: T1}
func Load(ctx context.Context, fs afs.Service, URL string) (Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load mock config %v: %w", URL, err)
	}
	return Parse(data)
}

// Parse decodes a YAML mock configuration
func Parse(data []byte) (Config, error) {
	var specs map[string]*behaviorSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("invalid mock config: %w", err)
	}
	ret := Config{}
	for step, spec := range specs {
		if spec == nil {
			continue
		}
		behavior := &Behavior{Success: spec.Success, Probability: spec.Probability}
		if spec.Failure != "" {
			behavior.Failure = errors.New(spec.Failure)
		}
		if spec.Delay != "" {
			delay, err := parseDelay(spec.Delay)
			if err != nil {
				return nil, fmt.Errorf("step %v: %w", step, err)
			}
			behavior.Delay = delay
		}
		if p := behavior.SuccessProbability(); p < 0 || p > 1 {
			return nil, fmt.Errorf("step %v: probability %v out of range [0,1]", step, p)
		}
		ret[step] = behavior
	}
	return ret, nil
}

func parseDelay(value string) (time.Duration, error) {
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	delay, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", value, err)
	}
	return delay, nil
}
