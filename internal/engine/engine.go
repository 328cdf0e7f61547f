// Package engine implements the poll cycle: fetch listings per keyword,
// diff against the seen registry, notify new items, commit status.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ebay_watcher/internal/filter"
	"ebay_watcher/internal/model"
	"ebay_watcher/internal/notify"
	"ebay_watcher/internal/source"
	"ebay_watcher/internal/status"
	"ebay_watcher/internal/storage"
)

// Engine runs poll cycles. Not safe for concurrent RunCycle calls; the
// scheduler guarantees at most one cycle in flight.
type Engine struct {
	store     storage.Storage
	source    source.Source
	notifier  notify.Notifier
	publisher *status.Publisher
	log       *slog.Logger

	workers    int
	retention  time.Duration
	pruneEvery int
	cycles     int
	now        func() time.Time
}

// New creates an Engine with default tuning (4 fetch workers, 14-day
// retention, prune every 12 cycles).
func New(store storage.Storage, src source.Source, n notify.Notifier, pub *status.Publisher, log *slog.Logger) *Engine {
	return &Engine{
		store:      store,
		source:     src,
		notifier:   n,
		publisher:  pub,
		log:        log,
		workers:    4,
		retention:  14 * 24 * time.Hour,
		pruneEvery: 12,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetWorkers overrides the fetch worker pool size.
func (e *Engine) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// SetRetention overrides the seen-entry retention horizon.
func (e *Engine) SetRetention(d time.Duration) {
	e.retention = d
}

// SetPruneEvery overrides how many completed cycles pass between prunes.
func (e *Engine) SetPruneEvery(n int) {
	if n > 0 {
		e.pruneEvery = n
	}
}

type fetchResult struct {
	listings []model.Listing
	err      error
}

// RunCycle executes one full poll cycle. Per-keyword source failures and
// per-listing notifier failures are isolated and aggregated into the cycle
// status; persistence failures abort the cycle. Cancellation is honored
// between keyword iterations, never inside a keyword's notify/record walk.
// A listing is marked seen only after its notification succeeded, so a
// crash between send and mark can re-notify that one listing after
// restart, never drop it silently.
func (e *Engine) RunCycle(ctx context.Context) error {
	startedAt := e.now()

	// A stop signal takes effect at keyword boundaries only: once a
	// keyword's notify/record walk starts it runs to completion on a
	// detached context, so a graceful stop never leaves a listing
	// notified but unrecorded. The status commit rides the same context
	// so a stopped cycle still publishes what it did.
	commitCtx := context.WithoutCancel(ctx)

	// Snapshot taken once: keyword edits land on the next cycle boundary.
	keywords, err := e.store.ListKeywords(ctx)
	if err != nil {
		return e.failCycle(commitCtx, startedAt, fmt.Errorf("list keywords: %w", err))
	}

	results := make([]fetchResult, len(keywords))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			listings, err := e.source.Fetch(ctx, kw)
			results[i] = fetchResult{listings: listings, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// Single writer: all seen-registry reads and writes from here on.
	var processed, newFound int
	var lastError string
	for i, kw := range keywords {
		if ctx.Err() != nil {
			break
		}
		processed++

		res := results[i]
		if res.err != nil {
			e.log.Error("fetch keyword", "keyword", kw, "error", res.err)
			lastError = fmt.Sprintf("fetch %q: %v", kw, res.err)
			continue
		}
		e.log.Debug("fetched keyword", "keyword", kw, "listings", len(res.listings))

		rules, err := e.store.ListRules(commitCtx, kw)
		if err != nil {
			return e.failCycle(commitCtx, startedAt, fmt.Errorf("list rules for %q: %w", kw, err))
		}

		for _, l := range res.listings {
			if !filter.Match(l, rules) {
				continue
			}

			seen, err := e.store.IsSeen(commitCtx, kw, l.ID)
			if err != nil {
				return e.failCycle(commitCtx, startedAt, fmt.Errorf("check seen %q/%q: %w", kw, l.ID, err))
			}
			if seen {
				continue
			}

			if err := e.notifier.Send(commitCtx, l); err != nil {
				// Left unseen: the next cycle retries it.
				e.log.Error("notify listing", "keyword", kw, "listing_id", l.ID, "error", err)
				lastError = fmt.Sprintf("notify %q/%q: %v", kw, l.ID, err)
				continue
			}

			if err := e.store.MarkSeen(commitCtx, kw, l.ID, e.now()); err != nil {
				return e.failCycle(commitCtx, startedAt, fmt.Errorf("mark seen %q/%q: %w", kw, l.ID, err))
			}
			newFound++
		}
	}

	st := model.CycleStatus{
		StartedAt:         startedAt,
		FinishedAt:        e.now(),
		KeywordsProcessed: processed,
		NewListingsFound:  newFound,
		LastError:         lastError,
	}
	if err := e.store.SaveCycleStatus(commitCtx, &st); err != nil {
		return e.failCycle(commitCtx, startedAt, fmt.Errorf("save cycle status: %w", err))
	}
	e.publisher.Publish(st)

	if newFound > 0 {
		e.log.Info("cycle complete", "keywords", processed, "new_listings", newFound)
	}

	e.cycles++
	if e.cycles%e.pruneEvery == 0 {
		pruned, err := e.store.PruneSeen(commitCtx, e.now().Add(-e.retention))
		if err != nil {
			e.log.Error("prune seen entries", "error", err)
		} else if pruned > 0 {
			e.log.Info("pruned seen entries", "count", pruned)
		}
	}

	return nil
}

// failCycle surfaces a fatal cycle error through the publisher. The durable
// status write is best-effort here; the in-memory snapshot always reflects
// the failure.
func (e *Engine) failCycle(ctx context.Context, startedAt time.Time, err error) error {
	st := model.CycleStatus{
		StartedAt:  startedAt,
		FinishedAt: e.now(),
		LastError:  err.Error(),
	}
	if saveErr := e.store.SaveCycleStatus(ctx, &st); saveErr != nil {
		e.log.Error("save failed cycle status", "error", saveErr)
	}
	e.publisher.Publish(st)
	return err
}
