// Package cli provides test helpers for running keyissuer cobra commands.
//
// # Basic Usage
//
//	result := cli.Run(cmd.NewRootCmd(), "version")
//	result.AssertSuccess(t)
//	result.AssertPrefix(t, "keyissuer v")
//
// # Config Files
//
//	path := cli.WriteConfig(t, "listen_addr: 127.0.0.1:0\n")
//	result := cli.Run(cmd.NewRootCmd(), "--config", path, "log")
package cli
