// Package version reports the autotrader build version and checks config
// files against it.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is set at build time:
// -ldflags "-X github.com/rxtech-lab/argo-autotrader/internal/version.Version=1.2.3"
// "main" marks a development build.
var Version = "v0.1.0"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}

// CheckCompatibility reports whether a binary at buildVersion can load a
// config written for configVersion. The major versions must match and the
// binary must not be older than the config. A "main" build accepts any
// config.
func CheckCompatibility(buildVersion, configVersion string) error {
	buildVersion = strings.TrimPrefix(buildVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if buildVersion == "main" || configVersion == "main" {
		return nil
	}

	build, err := semver.NewVersion(buildVersion)
	if err != nil {
		return fmt.Errorf("invalid build version '%s': %w", buildVersion, err)
	}

	constraint, err := semver.NewConstraint("^" + configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if ok, reasons := constraint.Validate(build); !ok {
		return fmt.Errorf("autotrader %s cannot load a config written for %s: %v", build, configVersion, reasons)
	}

	return nil
}
