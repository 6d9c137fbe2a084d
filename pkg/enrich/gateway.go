// Package enrich looks up media in the remote OMDb catalog and folds the
// results back into the local catalog.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/logging"
)

// DefaultTimeout bounds a remote lookup when none is configured.
const DefaultTimeout = 10 * time.Second

// Searcher performs the remote lookup.
type Searcher interface {
	Search(ctx context.Context, title string) ([]catalog.Media, error)
}

// Appender persists fetched records. *catalog.CatalogStore satisfies it.
type Appender interface {
	AppendAll(ctx context.Context, batch []catalog.Media) ([]catalog.Media, error)
}

// Gateway queries the remote catalog and caches what it finds.
type Gateway struct {
	searcher Searcher
	store    Appender
	timeout  time.Duration
	metrics  *Metrics
}

// NewGateway builds a gateway. A non-positive timeout uses DefaultTimeout.
func NewGateway(searcher Searcher, store Appender, timeout time.Duration, metrics *Metrics) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gateway{searcher: searcher, store: store, timeout: timeout, metrics: metrics}
}

// SearchAndCache asks the remote catalog for title. On a hit, every record
// not already in the catalog is appended to it, and all fetched records are
// returned, including ones that were already known. A remote miss or failure
// returns *RemoteError and writes nothing. A storage failure during the
// fold-back is returned as-is.
func (g *Gateway) SearchAndCache(ctx context.Context, title string) ([]catalog.Media, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	fetched, err := g.searcher.Search(lookupCtx, title)
	if err != nil {
		var re *RemoteError
		if !errors.As(err, &re) {
			re = &RemoteError{Message: "remote lookup failed", Err: err}
		}
		if errors.Is(lookupCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// the searcher may report its own error; callers still see a deadline
			if !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
			re = &RemoteError{Message: "remote lookup timed out", Err: err}
		}
		logging.Ctx(ctx).Debug().Str("title", title).Err(re).Msg("remote lookup returned nothing")
		return nil, re
	}
	if len(fetched) == 0 {
		return nil, &RemoteError{Message: "Movie not found!"}
	}

	stored, err := g.store.AppendAll(ctx, fetched)
	if err != nil {
		return nil, err
	}
	g.metrics.Persisted.Add(float64(len(stored)))

	logging.Ctx(ctx).Info().
		Str("title", title).
		Int("fetched", len(fetched)).
		Int("persisted", len(stored)).
		Msg("remote results cached")

	return fetched, nil
}

// Disabled is a Searcher used when remote lookups are turned off.
type Disabled struct{}

func (Disabled) Search(context.Context, string) ([]catalog.Media, error) {
	return nil, &RemoteError{Message: "Movie not found!"}
}
