// Package semver validates function versions and matches them against
// version ranges.
package semver

import (
	"fmt"
	"regexp"
	"strconv"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:version"

var (
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	major, err := strconv.Atoi(rangeStr)
	if err != nil {
		return -1
	}
	return major
}

// ValidateVersion checks that v is a full MAJOR.MINOR.PATCH version.
func ValidateVersion(v string) error {
	if !IsExactVersion(v) {
		return fmt.Errorf("%s - %q is not a MAJOR.MINOR.PATCH version", logPrefix, v)
	}
	if _, err := masterminds.StrictNewVersion(v); err != nil {
		return fmt.Errorf("%s - invalid version %q: %w", logPrefix, v, err)
	}
	return nil
}

// ValidateRange checks that rangeStr is a major-only specifier or a
// constraint such as "^1.2.0" or ">=1.0.0 <2.0.0".
func ValidateRange(rangeStr string) error {
	if IsMajorOnly(rangeStr) {
		return nil
	}
	if _, err := masterminds.NewConstraint(rangeStr); err != nil {
		return fmt.Errorf("%s - invalid version range %q: %w", logPrefix, rangeStr, err)
	}
	return nil
}
