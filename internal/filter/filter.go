// Package filter implements the listing suppression rule engine.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ebay_watcher/internal/model"
)

// Match checks whether a listing passes the given set of rules.
// If no rules are provided, the listing always passes. A listing is
// suppressed as soon as any rule matches it.
func Match(l model.Listing, rules []model.Rule) bool {
	for _, r := range rules {
		if suppresses(l, r) {
			return false
		}
	}
	return true
}

func suppresses(l model.Listing, r model.Rule) bool {
	switch r.Kind {
	case model.RuleExclude:
		return strings.Contains(strings.ToLower(l.Title), strings.ToLower(r.Value))
	case model.RuleExcludeRe:
		re, err := regexp.Compile("(?i)" + r.Value)
		if err != nil {
			return false
		}
		return re.MatchString(l.Title)
	case model.RuleMaxPrice:
		limit, err := strconv.ParseFloat(r.Value, 64)
		if err != nil {
			return false
		}
		// Listings without a parseable price are kept: a missing price
		// must not hide an interesting item.
		return l.PriceEUR > limit
	}
	return false
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
