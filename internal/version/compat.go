package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// CheckConfig reports whether an engine at engineVersion can run a config written for
// configVersion. The engine must satisfy ^configVersion: same major (same minor below 1.0)
// and not older than the config. An empty config version or a dev engine always passes.
func CheckConfig(engineVersion, configVersion string) error {
	configVersion = strings.TrimSpace(configVersion)
	if configVersion == "" || strings.TrimPrefix(engineVersion, "v") == devVersion {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid engine version %q", engineVersion)
	}

	constraint, err := semver.NewConstraint("^" + strings.TrimPrefix(configVersion, "v"))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version %q", configVersion)
	}

	if !constraint.Check(engine) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config written for %s cannot run on engine %s", configVersion, engineVersion)
	}

	return nil
}
