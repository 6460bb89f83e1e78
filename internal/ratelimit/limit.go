// Package ratelimit enforces per-route request ceilings keyed by client address.
package ratelimit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Limit allows Count requests per Period.
type Limit struct {
	Count  int
	Period time.Duration
}

func (l Limit) String() string {
	return fmt.Sprintf("%d per %s", l.Count, l.Period)
}

var limitPattern = regexp.MustCompile(`^(\d+)\s*(?:per|/)\s*(\d+)?\s*(second|minute|hour|day)s?$`)

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// Parse reads expressions such as "5 per minute", "60/minute" or "10 per 5 minutes".
func Parse(expr string) (Limit, error) {
	m := limitPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(expr)))
	if m == nil {
		return Limit{}, fmt.Errorf("invalid rate limit %q", expr)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return Limit{}, fmt.Errorf("invalid rate limit count in %q", expr)
	}
	multiplier := 1
	if m[2] != "" {
		if multiplier, err = strconv.Atoi(m[2]); err != nil || multiplier <= 0 {
			return Limit{}, fmt.Errorf("invalid rate limit period in %q", expr)
		}
	}
	return Limit{Count: count, Period: time.Duration(multiplier) * units[m[3]]}, nil
}

// MustParse is Parse for route tables; it panics on a malformed expression.
func MustParse(expr string) Limit {
	l, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return l
}
