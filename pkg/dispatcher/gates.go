package dispatcher

import (
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sort"

	"golang.org/x/time/rate"
)

// newRateGate returns nil when limiting is off. perSecond calls are admitted
// per second with a burst of the same size.
func newRateGate(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// headerRule requires at least one pattern to match a header's value.
type headerRule struct {
	header   string
	patterns []*regexp.Regexp
}

// compileHeaderPolicy compiles the header-match policy in header name order so
// the first reported mismatch is deterministic.
func compileHeaderPolicy(policy map[string][]string) ([]headerRule, error) {
	names := make([]string, 0, len(policy))
	for name := range policy {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]headerRule, 0, len(names))
	for _, name := range names {
		rule := headerRule{header: name}
		for _, expr := range policy[name] {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("%s - invalid pattern for header %s: %w", logPrefix, name, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// checkHeaders returns the first header whose value matches none of its
// patterns. A missing header is matched as the empty string.
func checkHeaders(rules []headerRule, hdr http.Header) (string, bool) {
	for _, rule := range rules {
		value := hdr.Get(rule.header)
		matched := false
		for _, re := range rule.patterns {
			if re.MatchString(value) {
				matched = true
				break
			}
		}
		if !matched {
			return rule.header, false
		}
	}
	return "", true
}
