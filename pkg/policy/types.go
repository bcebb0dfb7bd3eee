// Package policy loads the request policy file: header-match rules and
// overrides for the CORS origin, help route and rate limit.
package policy

// Policy is the policy file. Pointer fields are optional and only override
// the environment when present.
type Policy struct {
	// MatchHeader maps a header name to regular expressions. A request must
	// match at least one expression per listed header.
	MatchHeader map[string][]string `json:"matchHeader,omitempty"`
	CORS        *string             `json:"cors,omitempty"`
	AllowHelp   *bool               `json:"allowHelp,omitempty"`
	RateLimit   *float64            `json:"rateLimit,omitempty"`
}

// Settings are the effective dispatcher settings after applying a policy.
type Settings struct {
	CORSOrigin   string
	AllowHelp    bool
	RateLimit    float64
	HeaderPolicy map[string][]string
}

// Apply overlays p on s. Header rules from p are added to any already in s;
// a header listed in both keeps p's expressions.
func (p *Policy) Apply(s Settings) Settings {
	if p == nil {
		return s
	}
	if p.CORS != nil {
		s.CORSOrigin = *p.CORS
	}
	if p.AllowHelp != nil {
		s.AllowHelp = *p.AllowHelp
	}
	if p.RateLimit != nil {
		s.RateLimit = *p.RateLimit
	}
	if len(p.MatchHeader) > 0 {
		merged := make(map[string][]string, len(s.HeaderPolicy)+len(p.MatchHeader))
		for h, exprs := range s.HeaderPolicy {
			merged[h] = exprs
		}
		for h, exprs := range p.MatchHeader {
			merged[h] = append([]string(nil), exprs...)
		}
		s.HeaderPolicy = merged
	}
	return s
}
