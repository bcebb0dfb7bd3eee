package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"sort"
)

const logPrefix = "policy:loader"

// DefaultPaths are tried, in order, when no path is configured.
var DefaultPaths = []string{"config/policy.json", "policy.json"}

// Load reads the policy file at path. With an empty path the DefaultPaths are
// tried and a missing file yields an empty policy. A configured path that
// cannot be read, malformed JSON and invalid expressions are errors.
func Load(path string) (*Policy, error) {
	if path != "" {
		return loadFile(path)
	}

	for _, p := range DefaultPaths {
		pol, err := loadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return pol, err
	}

	slog.Info(fmt.Sprintf("%s - No policy file, using environment settings only", logPrefix))
	return &Policy{}, nil
}

func loadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, path, err)
	}
	pol, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s - %s: %w", logPrefix, path, err)
	}
	slog.Info(fmt.Sprintf("%s - Loaded policy from %s (%d header rules)", logPrefix, path, len(pol.MatchHeader)))
	return pol, nil
}

// Parse decodes and validates a policy document.
func Parse(data []byte) (*Policy, error) {
	var pol Policy
	if err := json.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("invalid policy JSON: %w", err)
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}
	return &pol, nil
}

// Validate compiles every header expression and checks the rate limit.
func (p *Policy) Validate() error {
	headers := make([]string, 0, len(p.MatchHeader))
	for h := range p.MatchHeader {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, h := range headers {
		if h == "" {
			return errors.New("matchHeader has an empty header name")
		}
		if len(p.MatchHeader[h]) == 0 {
			return fmt.Errorf("matchHeader %s has no expressions", h)
		}
		for _, expr := range p.MatchHeader[h] {
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("matchHeader %s: %w", h, err)
			}
		}
	}
	if p.RateLimit != nil && *p.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative, got %v", *p.RateLimit)
	}
	return nil
}
