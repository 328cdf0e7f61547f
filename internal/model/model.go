// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// NormalizeKeyword canonicalizes a search term: trimmed, lowercased,
// inner whitespace collapsed to single spaces. Two keywords are the same
// keyword iff their normalized forms are equal.
func NormalizeKeyword(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Listing is a single item returned by the marketplace source for a keyword.
// Immutable once produced.
type Listing struct {
	ID          string
	Keyword     string
	Title       string
	PriceEUR    float64 // 0 when the source exposes no parseable price
	URL         string
	FirstSeenAt time.Time
}

// SeenEntry records that a listing has been notified for a keyword.
type SeenEntry struct {
	Keyword    string
	ListingID  string
	NotifiedAt time.Time
}

// RuleKind defines the type of suppression rule.
type RuleKind string

// Supported rule kinds.
const (
	RuleExclude   RuleKind = "exclude"
	RuleExcludeRe RuleKind = "exclude_re"
	RuleMaxPrice  RuleKind = "max_price"
)

// Rule suppresses listings for a keyword before they reach the notifier.
// A suppressed listing is neither notified nor marked seen.
type Rule struct {
	ID        int64
	Keyword   string
	Kind      RuleKind
	Value     string
	CreatedAt time.Time
}

// CycleStatus is the snapshot of the most recent poll cycle. One current
// value, overwritten each cycle; not a log.
type CycleStatus struct {
	StartedAt         time.Time
	FinishedAt        time.Time
	KeywordsProcessed int
	NewListingsFound  int
	LastError         string
}
