package version

// Version is the current version of omagle.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/alamayub/omagle-clone/internal/version.Version=v1.0.0'"
var Version = "dev"
