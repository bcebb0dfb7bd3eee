package semver

import (
	"testing"
)

func TestSatisfiesRange(t *testing.T) {
	tests := []struct {
		version string
		rng     string
		want    bool
	}{
		{"3.2.1", "3", true},
		{"4.0.0", "3", false},
		{"3.2.1", "^3.0.0", true},
		{"3.2.1", "~3.2.0", true},
		{"3.3.0", "~3.2.0", false},
		{"2.0.0", ">=1.0.0 <3.0.0", true},
		{"1.0.0", "", true},
		{"", "", true},
		{"", "^1.0.0", false},
		{"garbage", "1", false},
		{"1.0.0", "not a range", false},
	}

	for _, tt := range tests {
		t.Run(tt.version+"@"+tt.rng, func(t *testing.T) {
			if got := SatisfiesRange(tt.version, tt.rng); got != tt.want {
				t.Errorf("semver:match_test - SatisfiesRange(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
			}
		})
	}
}
