// mtserver runs the constrained-translation pipeline: an HTTP server around
// per-language tokenizer processes and subword models, plus small offline
// tools for segmenting text and querying a running server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
