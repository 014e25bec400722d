package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/metrics"
	"backoffice/internal/repos"
	"backoffice/internal/search"
)

// IndexSynchronizer keeps the search index in step with the store. Sync and
// the document half of Remove never fail the caller; Resync is the repair path.
type IndexSynchronizer struct {
	Index    search.Index
	Products *repos.ProductRepo
	Coupons  *repos.CouponRepo
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Workers  int
}

const resyncBatch = 200

// ResyncReport summarises one Resync run.
type ResyncReport struct {
	Total   int64 `json:"total"`
	Indexed int64 `json:"indexed"`
	Failed  int64 `json:"failed"`
	Drifted int64 `json:"drifted"`
}

// detach keeps the index write alive when the request that triggered it
// goes away, bounded by the index timeout.
func (s *IndexSynchronizer) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout())
}

func (s *IndexSynchronizer) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 3 * time.Second
	}
	return s.Timeout
}

// Document builds the current projection of p.
func (s *IndexSynchronizer) Document(p domain.Product) (domain.ProductDocument, error) {
	cs, err := s.Coupons.ProductSummaries(p.ID)
	if err != nil {
		return domain.ProductDocument{}, err
	}
	return search.Project(p, cs), nil
}

// Sync writes the document for p. Failures are logged and counted only.
func (s *IndexSynchronizer) Sync(ctx context.Context, p domain.Product) {
	doc, err := s.Document(p)
	if err == nil {
		ctx, cancel := s.detach(ctx)
		err = s.Index.Put(ctx, doc)
		cancel()
	}
	s.Metrics.Sync("put", err)
	if err != nil {
		applog.Warn(nil, "index.sync.fail", err, map[string]any{"product_id": p.ID})
	}
}

// Remove deletes the product from the store, then its document. Only the
// store delete can fail the call.
func (s *IndexSynchronizer) Remove(ctx context.Context, id int64) error {
	if err := s.Products.Delete(id); err != nil {
		return err
	}
	dctx, cancel := s.detach(ctx)
	err := s.Index.Delete(dctx, id)
	cancel()
	s.Metrics.Sync("delete", err)
	if err != nil {
		applog.Warn(nil, "index.remove.fail", err, map[string]any{"product_id": id})
	}
	return nil
}

// Resync recomputes and overwrites the document of every stored product.
// Per-document failures are counted in the report; the returned error is
// only set when paging through the store fails or ctx is cancelled.
func (s *IndexSynchronizer) Resync(ctx context.Context) (ResyncReport, error) {
	var rep ResyncReport
	var indexed, failed, drifted atomic.Int64

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var after int64
	var pageErr error
	for {
		if gctx.Err() != nil {
			break
		}
		ids, err := s.Products.IDsAfter(after, resyncBatch)
		if err != nil {
			pageErr = err
			break
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			rep.Total++
			g.Go(func() error {
				d, err := s.resyncOne(gctx, id)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					// deleted since it was listed
				case err != nil:
					failed.Add(1)
					applog.Warn(nil, "index.resync.fail", err, map[string]any{"product_id": id})
				default:
					indexed.Add(1)
					if d {
						drifted.Add(1)
					}
				}
				return nil
			})
		}
		after = ids[len(ids)-1]
	}
	waitErr := g.Wait()

	rep.Indexed, rep.Failed, rep.Drifted = indexed.Load(), failed.Load(), drifted.Load()
	s.Metrics.Drift(int(rep.Drifted))
	applog.Info(nil, "index.resync", map[string]any{
		"total": rep.Total, "indexed": rep.Indexed, "failed": rep.Failed, "drifted": rep.Drifted,
	})
	if pageErr != nil {
		return rep, pageErr
	}
	if waitErr != nil {
		return rep, waitErr
	}
	return rep, ctx.Err()
}

// resyncOne reports whether the stored document differed from the fresh one.
func (s *IndexSynchronizer) resyncOne(ctx context.Context, id int64) (bool, error) {
	p, err := s.Products.Get(id)
	if err != nil {
		return false, err
	}
	doc, err := s.Document(p)
	if err != nil {
		return false, err
	}
	ictx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	// an unreadable document is drift like any other and gets overwritten
	old, found, err := s.Index.Get(ictx, id)
	if err != nil {
		s.Metrics.Sync("get", err)
		applog.Warn(nil, "index.resync.read", err, map[string]any{"product_id": id})
		found = false
	}
	err = s.Index.Put(ictx, doc)
	s.Metrics.Sync("put", err)
	return !found || !old.Equal(doc), err
}
