package version

// Version is the service version.
// It is overridden at build time with -ldflags "-X github.com/hrygo/leanmind/internal/version.Version=...".
var Version = "0.1.0"

// GetCurrentVersion returns the version reported in logs and the metrics endpoint.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return Version + "-" + mode
	}
	return Version
}
