package semver

import (
	masterminds "github.com/Masterminds/semver/v3"
)

// SatisfiesRange checks if a version string satisfies a range. An empty range
// matches every version, including an empty one.
func SatisfiesRange(version, rangeStr string) bool {
	if rangeStr == "" {
		return true
	}

	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}

	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}

	return constraint.Check(sv)
}
