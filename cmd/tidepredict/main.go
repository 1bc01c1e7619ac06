// Command tidepredict predicts high and low tides from harmonic constants
// fitted to UHSLC hourly sea level data.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
