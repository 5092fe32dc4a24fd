package experiment

import (
	"errors"
	"fmt"

	"github.com/blang/semver"
)

var (
	// CurrentVersion is the experiment document version this package writes.
	CurrentVersion = semver.MustParse("5.0.0")
	// MinSupportedVersion is the oldest document version the loader accepts.
	MinSupportedVersion = semver.MustParse("4.0.0")
	// MaxSupportedVersion is the exclusive upper bound on accepted versions.
	MaxSupportedVersion = semver.MustParse("6.0.0")
)

// ErrUnsupportedVersion is returned when an experiment document's version
// falls outside the supported range.
var ErrUnsupportedVersion = errors.New("experiment: unsupported document version")

// checkVersion parses a document version and gates it against the supported
// range.
func checkVersion(s string) (semver.Version, error) {
	v, err := semver.Parse(s)
	if err != nil {
		return semver.Version{}, fmt.Errorf("experiment: parsing document version %q: %w", s, err)
	}
	if v.LT(MinSupportedVersion) || v.GTE(MaxSupportedVersion) {
		return semver.Version{}, fmt.Errorf("%w: %s (supported: >=%s <%s)",
			ErrUnsupportedVersion, v, MinSupportedVersion, MaxSupportedVersion)
	}
	return v, nil
}
