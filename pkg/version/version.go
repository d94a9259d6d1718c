// Package version carries the build version stamped in at link time:
//
//	go build -ldflags "-X github.com/callcoach/callcoach-core/pkg/version.Version=v1.2.0"
package version

var Version = "dev"
