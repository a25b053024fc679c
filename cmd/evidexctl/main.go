// Command evidexctl ingests documents and queries the evidence corpus
// in process, using the same configuration as the server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
