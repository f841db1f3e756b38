package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/sagaflow/internal/idgen"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/compensation"
)

var (
	// ErrNotFound is returned for a missing document
	ErrNotFound = errors.New("resource not found")
	// ErrExists is returned when creating a document that already exists
	ErrExists = errors.New("resource already exists")
	// ErrInvalidPayload is returned for payloads that are not JSON objects
	ErrInvalidPayload = errors.New("resource payload must be an object")
)

// Document is a stored resource
type Document map[string]interface{}

// ID returns the document identifier
func (d Document) ID() string {
	if value, ok := d["id"]; ok && value != nil {
		return fmt.Sprint(value)
	}
	return ""
}

// Client is a file system resource client. A target such as /orders/42
// maps to <baseURL>/orders/42.json.
type Client struct {
	fs      afs.Service
	baseURL string
	logger  logrus.FieldLogger
	mux     sync.RWMutex
}

var _ compensation.ResourceClient = (*Client)(nil)

// Option customises a client
type Option func(c *Client)

// WithFS sets the file system
func WithFS(fs afs.Service) Option {
	return func(c *Client) {
		c.fs = fs
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Create stores payload in the target collection, assigning an id when the
// payload has none, and returns the stored document.
func (c *Client) Create(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	doc, err := asDocument(payload)
	if err != nil {
		return nil, err
	}
	if doc.ID() == "" {
		doc["id"] = idgen.Sortable()
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	URL := c.location(target, doc.ID())
	if exists, _ := c.fs.Exists(ctx, URL); exists {
		return nil, fmt.Errorf("%w: %v", ErrExists, URL)
	}
	if err = c.write(ctx, URL, doc); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"target": target, "id": doc.ID()}).Debug("resource created")
	return doc, nil
}

// Update replaces the document at target and returns payload
func (c *Client) Update(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	URL := c.location(target, "")
	if exists, _ := c.fs.Exists(ctx, URL); !exists {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, target)
	}
	if err := c.write(ctx, URL, payload); err != nil {
		return nil, err
	}
	c.logger.WithField("target", target).Debug("resource updated")
	return payload, nil
}

// Delete removes the document at target
func (c *Client) Delete(ctx context.Context, target string) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	URL := c.location(target, "")
	if exists, _ := c.fs.Exists(ctx, URL); !exists {
		return fmt.Errorf("%w: %v", ErrNotFound, target)
	}
	if err := c.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete %v: %w", URL, err)
	}
	c.logger.WithField("target", target).Debug("resource deleted")
	return nil
}

// Get loads the document at target
func (c *Client) Get(ctx context.Context, target string) (Document, error) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.read(ctx, c.location(target, ""))
}

// Creator returns a step executor creating its input in collection
func (c *Client) Creator(collection string) types.Executor {
	return types.Func(func(ctx context.Context, input interface{}, _ *execution.Context) (interface{}, error) {
		return c.Create(ctx, collection, input)
	})
}

// Deleter returns a step executor deleting the document of collection
// identified by its input, either an id or a document carrying one. The
// deleted document is returned so that it can be recreated.
func (c *Client) Deleter(collection string) types.Executor {
	return types.Func(func(ctx context.Context, input interface{}, _ *execution.Context) (interface{}, error) {
		id := fmt.Sprint(input)
		if doc, err := asDocument(input); err == nil {
			id = doc.ID()
		}
		target := strings.TrimSuffix(collection, "/") + "/" + id
		doc, err := c.Get(ctx, target)
		if err != nil {
			return nil, err
		}
		if err = c.Delete(ctx, target); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

func (c *Client) location(target, id string) string {
	location := strings.Trim(target, "/")
	if id != "" {
		location += "/" + id
	}
	return url.Join(c.baseURL, location+".json")
}

func (c *Client) write(ctx context.Context, URL string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}
	if err = c.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store %v: %w", URL, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, URL string) (Document, error) {
	if exists, _ := c.fs.Exists(ctx, URL); !exists {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, URL)
	}
	data, err := c.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", URL, err)
	}
	var ret Document
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", URL, err)
	}
	return ret, nil
}

func asDocument(payload interface{}) (Document, error) {
	switch actual := payload.(type) {
	case Document:
		return copyOf(actual), nil
	case map[string]interface{}:
		return copyOf(actual), nil
	case nil:
		return nil, ErrInvalidPayload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var ret Document
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidPayload, payload)
	}
	return ret, nil
}

func copyOf(source map[string]interface{}) Document {
	ret := make(Document, len(source))
	for k, v := range source {
		ret[k] = v
	}
	return ret
}

// New creates a client storing documents under baseURL
func New(baseURL string, options ...Option) *Client {
	ret := &Client{baseURL: baseURL, logger: logrus.StandardLogger()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	return ret
}
