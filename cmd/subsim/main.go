package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const envVar = "SUBSIM_ENV"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "run":
		return runScenario(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stdout, stderr)
	case "quote":
		return runQuote(args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	builder := &strings.Builder{}
	fmt.Fprintln(builder, "Usage: subsim <command> [options]")
	fmt.Fprintln(builder, "Commands:")
	fmt.Fprintln(builder, "  run     Simulate a scenario and print or export the monthly series")
	fmt.Fprintln(builder, "  quote   Price a single admission at a timestamp")
	fmt.Fprintln(builder, "  serve   Start the scenario HTTP API")
	fmt.Fprintln(builder, "  config  Print the effective configuration and its fingerprint")
	return builder.String()
}
