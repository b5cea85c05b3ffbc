package main

import (
	"fmt"
	"os"

	"github.com/gm-pacific/nexahub/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the nexahub command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
