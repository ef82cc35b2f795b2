// Socratic: an interrogation engine MCP server.
//
// It turns ambiguous requirement documents (epics) into implementation-ready
// state through iterative, scored Socratic questioning over stdio MCP.
//
// Usage:
//
//	socratic serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/probelabs/socratic/internal/config"
	socserver "github.com/probelabs/socratic/internal/server"
)

func main() {
	// Log to stderr: stdout belongs to the MCP stdio transport.
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("socratic v%s\n", socserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	s, cleanup, err := socserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `socratic — interrogation engine MCP server

Usage:
  socratic serve      Start the MCP server (stdio transport)
  socratic version    Print the version
  socratic help       Show this help

Environment:
  SOCRATIC_DB               SQLite database path (default ~/.socratic/socratic.db)
  SOCRATIC_LEXICON          Override the embedded vocabulary (YAML file)
  SOCRATIC_MAX_ROUNDS       Round cap per session (default 10)
  GEMINI_API_KEY            Enable semantic augmentation
  SOCRATIC_MODEL            Augmentation model name
  SOCRATIC_AUGMENT_TIMEOUT  Augmentation call timeout in seconds (default 20)`)
}
