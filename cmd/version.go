// -- cmd/version.go --
package cmd

// Version is stamped by the build, e.g.
// go build -ldflags "-X github.com/selwire/jsonwire/cmd.Version=1.2.3".
var Version = "0.1.0"
