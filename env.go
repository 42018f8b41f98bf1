package connect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/petrijr/connect/pkg/config"
	"github.com/petrijr/connect/pkg/logging"
)

// Env holds the process-wide collaborators built from a Config: the
// logger, the remote client and the run store. It replaces global
// settings; create it once at startup and Close it on shutdown.
type Env struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  Client
	Store   RunStore
	Metrics *BasicMetrics

	closers []io.Closer
}

// NewEnv builds an Env from cfg. When cfg.Fixtures is set, requests are
// served from that file instead of the remote API.
func NewEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfigMissing)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(logging.Config{
		Path:   cfg.Log.Path,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, err
	}
	env := &Env{
		Config:  cfg,
		Logger:  logger,
		Metrics: &BasicMetrics{},
		closers: []io.Closer{logCloser},
	}

	if env.Client, err = newClient(cfg, logger); err != nil {
		_ = env.Close()
		return nil, err
	}

	store, storeCloser, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	env.Store = store
	env.closers = append(env.closers, storeCloser)

	logger.Debug("Environment ready",
		slog.String("store", cfg.Store),
		slog.Bool("fixtures", cfg.Fixtures != ""),
		slog.String("products", cfg.ProductsString()),
	)
	return env, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) (Client, error) {
	if cfg.Fixtures != "" {
		return LoadFixtures(cfg.Fixtures)
	}
	return NewHTTPClient(ClientConfig{
		BaseURL:      cfg.APIURL,
		APIKey:       cfg.APIKey,
		Timeout:      cfg.Timeout,
		PageSize:     cfg.PageSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logging.WithModule(logger, "remote"),
	})
}

// NewProcessor returns a Processor reading from the Env's client. Runs are
// stored in the Env's store and observed by a logging observer and the
// Env's metrics. opts are applied after these defaults.
func (e *Env) NewProcessor(opts ...Option) *Processor {
	defaults := []Option{
		WithStore(e.Store),
		WithLogger(e.Logger),
		WithObserver(NewCompositeObserver(
			NewLoggingObserver(logging.WithModule(e.Logger, "flow")),
			e.Metrics,
		)),
	}
	return NewProcessor(e.Client, append(defaults, opts...)...)
}

// PendingRequestsQuery returns the query for pending requests of the
// configured products. The product filter is always sent, so an empty
// product list matches no request.
func (e *Env) PendingRequestsQuery() *Query {
	return NewQuery().
		Equal("asset.product.id"+InSuffix, e.Config.ProductsString()).
		Equal("status", string(StatusPending))
}

// Close releases the store and the log file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
