package dlock

import (
	"context"

	"go.uber.org/zap"
)

// Factory produces Locks that share one store, one configuration and one
// token source.
type Factory struct {
	store   *Store
	cfg     Config
	tokens  *tokenSource
	metrics *Metrics
	logger  *zap.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMetrics records lock operations on m.
func WithMetrics(m *Metrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = m
	}
}

// NewFactory creates a Factory on top of client.
func NewFactory(client Client, cfg Config, logger *zap.Logger, opts ...FactoryOption) *Factory {
	cfg = cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Factory{
		cfg:    cfg,
		tokens: newTokenSource(cfg.TokenStrategy, cfg.MachineID),
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.store = NewStore(client, f.metrics)

	return f
}

// Store returns the underlying script executor.
func (f *Factory) Store() *Store {
	return f.store
}

// Config returns the normalized configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// Key maps a lock name to its store key.
func (f *Factory) Key(name string) string {
	if f.cfg.KeyPrefix == "" {
		return name
	}

	return f.cfg.KeyPrefix + ":" + name
}

// Scope returns a context carrying a holder token, minting one if ctx has
// none. Every Lock produced from the returned context, for any key, uses the
// same token, so nested acquisitions in that scope are reentrant.
func (f *Factory) Scope(ctx context.Context) context.Context {
	if _, ok := TokenFrom(ctx); ok {
		return ctx
	}

	return WithToken(ctx, f.tokens.next())
}

// Produce returns a Lock for name. The holder token comes from ctx (see Scope
// and WithToken); without one the Lock gets a fresh token and is reentrant
// only through itself.
func (f *Factory) Produce(ctx context.Context, name string, opts ...LockOption) *Lock {
	token, ok := TokenFrom(ctx)
	if !ok {
		token = f.tokens.next()
	}

	return newLock(f.store, f.cfg, f.Key(name), token, f.logger, opts...)
}
