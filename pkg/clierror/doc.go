// Package clierror provides structured error handling for keyissuer commands.
//
// CLI errors carry an exit code, a user-facing message and an optional
// troubleshooting hint, keeping internal error details out of operator
// output.
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return clierror.ConfigInvalid(err)
//	}
package clierror
