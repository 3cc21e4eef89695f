// Package main is the entry point for the comment service load test
// binary. It provides subcommands for different scenarios:
//
//   - submit: steady mixed traffic from many commenters
//   - flood:  one identity posting as fast as it can, to watch the
//     cooldown ladder engage
//
// Usage:
//
//	loadtest <command> [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "submit":
		runSubmit(os.Args[2:])
	case "flood":
		runFlood(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loadtest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  submit    Mixed traffic test: many commenters, mostly clean with some abusive posts")
	fmt.Println("  flood     Single-identity flood: posts as fast as possible to exercise cooldowns")
	fmt.Println()
	fmt.Println("Run 'loadtest <command> -h' for command-specific options.")
}
