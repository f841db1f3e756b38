package execution

import "time"

type Option func(c *Context)

// WithID overrides the generated execution id
func WithID(id string) Option {
	return func(c *Context) {
		if id != "" {
			c.ID = id
		}
	}
}

// WithMetadata copies metadata into the context
func WithMetadata(metadata map[string]interface{}) Option {
	return func(c *Context) {
		for k, v := range metadata {
			c.metadata[k] = v
		}
	}
}

// WithStartedAt overrides the start timestamp
func WithStartedAt(at time.Time) Option {
	return func(c *Context) {
		c.StartedAt = at
	}
}
