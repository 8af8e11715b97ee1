// Command gows is an interactive WebSocket client.
//
// Lines read from stdin are sent to the server; everything the server sends is
// printed along with connection status changes.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
