package store

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/guyvdb/recstore/codec"
	"github.com/guyvdb/recstore/config"
	"github.com/guyvdb/recstore/engine"
)

// Controller owns the engine shared by every store built on it.
type Controller struct {
	config *config.Config
	engine engine.Engine
	store  *Store
	owned  bool
}

type controllerOptions struct {
	engine    engine.Engine
	storeOpts []Option
}

type ControllerOption func(*controllerOptions)

// WithEngine uses a pre-built engine instead of opening one from the
// configuration. The caller keeps ownership of it.
func WithEngine(e engine.Engine) ControllerOption {
	return func(o *controllerOptions) { o.engine = e }
}

func WithStoreOptions(opts ...Option) ControllerOption {
	return func(o *controllerOptions) { o.storeOpts = append(o.storeOpts, opts...) }
}

// NewController opens the database described by cfg with the entities of
// model.
func NewController(cfg *config.Config, model *engine.Model, opts ...ControllerOption) (*Controller, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &controllerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	storeOpts := make([]Option, 0, len(o.storeOpts)+1)
	key, err := cfg.PayloadKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		sealed, err := codec.NewSealed(codec.JSON{}, key)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, WithCodec(sealed))
	}
	storeOpts = append(storeOpts, o.storeOpts...)

	c := &Controller{config: cfg, engine: o.engine}
	if c.engine == nil {
		e, err := openEngine(cfg, model)
		if err != nil {
			return nil, err
		}
		c.engine = e
		c.owned = true
	}

	c.store = New(c.engine, storeOpts...)
	slog.Debug("NewController() - controller ready", "db", cfg.DBName, "inMemory", cfg.InMemory, "ownsEngine", c.owned)
	return c, nil
}

func openEngine(cfg *config.Config, model *engine.Model) (*engine.BoltEngine, error) {
	opts := []engine.Option{engine.WithTimeout(cfg.OpenTimeout)}
	if cfg.InMemory {
		opts = append(opts, engine.InMemory())
		return engine.Open(cfg.DBName+".db", model, opts...)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return engine.Open(cfg.Path(), model, opts...)
}

func (c *Controller) Config() *config.Config {
	return c.config
}

func (c *Controller) Engine() engine.Engine {
	return c.engine
}

// Store returns the store shared by every caller of this controller.
func (c *Controller) Store() *Store {
	return c.store
}

// Close closes the engine if the controller opened it.
func (c *Controller) Close() error {
	if !c.owned {
		return nil
	}
	return c.engine.Close()
}
