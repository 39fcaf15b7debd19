// Package version reports the engine version and checks the version a config file was written for.
package version

// Version is set at build time:
//
//	-ldflags "-X github.com/rxtech-lab/argo-ensemble/internal/version.Version=v0.3.0"
//
// "dev" marks a local build.
var Version = "v0.3.0"

const devVersion = "dev"

func GetVersion() string {
	return Version
}
