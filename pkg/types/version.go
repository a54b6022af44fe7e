package types

import (
	"strings"

	"github.com/blang/semver"
	"github.com/corral-dev/corral/pkg/errdefs"
)

// ValidateVersion checks that v is a valid Semantic Versioning 2.0.0 string:
// MAJOR.MINOR.PATCH with optional -PRERELEASE and +BUILD, no leading "v",
// no leading zeros, no empty pre-release identifiers. Rejections are
// validation errors so API layers map them to 400.
func ValidateVersion(v string) error {
	if v == "" {
		return errdefs.Validationf("version must not be empty")
	}
	if strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		return errdefs.Validationf("version %q must not have a leading v", v)
	}
	parsed, err := semver.Parse(v)
	if err != nil {
		return errdefs.Validationf("version %q is not valid SemVer 2.0.0: %v", v, err)
	}
	// Round-trip check: anything the parser normalized away (e.g. padding)
	// means the input was not canonical.
	if parsed.String() != v {
		return errdefs.Validationf("version %q is not canonical SemVer (parsed as %q)", v, parsed.String())
	}
	return nil
}

// CompareVersions returns -1, 0 or 1 if a is less than, equal to or greater
// than b under SemVer precedence. Both inputs must already be validated.
func CompareVersions(a, b string) int {
	va, errA := semver.Parse(a)
	vb, errB := semver.Parse(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
