// Package extract turns raw profile page content into follower, following and post counts.
//
// Parsing is an ordered list of strategies. Each strategy is a pure function of the page
// content and the last known baseline; the first one that yields a structurally valid
// result wins. Strategies can be added, removed or reordered without touching callers.
package extract

import (
	"errors"
	"strings"
)

var (
	// ErrStatsNotFound is returned when no strategy matched the page.
	ErrStatsNotFound = errors.New("stats not found in page")
	// ErrLoginWall is returned when the page is a login or challenge page instead of the profile.
	ErrLoginWall = errors.New("stats not found: login wall served, likely rate-limited")
)

// Baseline carries the last known counts for strategies that can only read part of the page.
type Baseline struct {
	Followers int64
	Following int64
	Posts     int64
}

// Result is a structurally valid set of counts read from a page.
type Result struct {
	Followers int64
	Following int64
	Posts     int64
	Strategy  string
}

// ParseFunc reads counts from content. It reports false when the strategy does not apply.
type ParseFunc func(content string, base Baseline) (Result, bool)

// Strategy is a named parsing attempt.
type Strategy struct {
	Name  string
	Parse ParseFunc
}

// Chain is an ordered list of strategies tried until one succeeds.
type Chain []Strategy

// DefaultChain returns the strategies in priority order.
func DefaultChain() Chain {
	return Chain{
		{Name: "embedded_payload", Parse: EmbeddedPayload},
		{Name: "meta_description", Parse: MetaDescription},
		{Name: "raw_follower_count", Parse: RawFollowerCount},
	}
}

// Parse runs the strategies in order and returns the first valid result.
func (c Chain) Parse(content string, base Baseline) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, ErrStatsNotFound
	}
	for _, s := range c {
		res, ok := s.Parse(content, base)
		if !ok || !res.valid() {
			continue
		}
		res.Strategy = s.Name
		return res, nil
	}
	if looksLikeLoginWall(content) {
		return Result{}, ErrLoginWall
	}
	return Result{}, ErrStatsNotFound
}

func (r Result) valid() bool {
	return r.Followers >= 0 && r.Following >= 0 && r.Posts >= 0
}

var loginMarkers = []string{
	`"loginForm"`,
	`/accounts/login/`,
	`/challenge/`,
	`"require_login":true`,
}

func looksLikeLoginWall(content string) bool {
	for _, m := range loginMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}
