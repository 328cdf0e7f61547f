// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"ebay_watcher/internal/model"
)

// Sentinel errors returned by keyword operations.
var (
	ErrKeywordExists   = errors.New("keyword already exists")
	ErrKeywordNotFound = errors.New("keyword not found")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// Keyword set. Keywords are stored normalized; ListKeywords returns
	// them in insertion order.
	AddKeyword(ctx context.Context, keyword string) error
	RemoveKeyword(ctx context.Context, keyword string) error
	ListKeywords(ctx context.Context) ([]string, error)

	// Seen registry. MarkSeen is idempotent: recording an already-present
	// pair is a no-op.
	IsSeen(ctx context.Context, keyword, listingID string) (bool, error)
	MarkSeen(ctx context.Context, keyword, listingID string, at time.Time) error
	PruneSeen(ctx context.Context, olderThan time.Time) (int64, error)

	// Suppression rules, written by the external control surface.
	CreateRule(ctx context.Context, r *model.Rule) error
	ListRules(ctx context.Context, keyword string) ([]model.Rule, error)
	DeleteRule(ctx context.Context, id int64) error

	// Cycle status: a single snapshot row replaced after every cycle.
	// LoadCycleStatus returns nil when no cycle has run yet.
	SaveCycleStatus(ctx context.Context, st *model.CycleStatus) error
	LoadCycleStatus(ctx context.Context) (*model.CycleStatus, error)

	Close() error
}
