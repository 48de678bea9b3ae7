// keyissuer issues opaque API credentials over HTTP and keeps an append-only
// status log of what happened to each one.
package main

import (
	"os"

	"github.com/gobeyondidentity/keyissuer/cmd/keyissuer/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
