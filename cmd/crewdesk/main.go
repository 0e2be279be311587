package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	case "enqueue":
		if err := runEnqueue(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := runStatus(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
	case "hashpass":
		if err := runHashpass(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "hashpass: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'crewdesk --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Print(`crewdesk - workforce back office QuickBooks sync service

Usage:
  crewdesk [serve]           start the Web Connector endpoint (default)
  crewdesk enqueue           add a sync queue item
  crewdesk status            show connection status and recent sync history
  crewdesk hashpass          bcrypt-hash a connector password for the config

Flags (serve):
  -config path               config file (default: crewdesk.yaml)

Environment:
  CREWDESK_SERVER_ADDR, CREWDESK_AUTH_USERNAME, CREWDESK_AUTH_PASSWORD,
  CREWDESK_STORE_PATH, CREWDESK_LOGGER_LEVEL, CREWDESK_TRACER_ENABLED,
  CREWDESK_SESSION_TTL, CREWDESK_DIRECTORY_SYNC
`)
}

// runHashpass prints a bcrypt hash for the password on stdin or -p flag,
// for pasting into auth.password in the config file.
func runHashpass(args []string) error {
	fs := flag.NewFlagSet("hashpass", flag.ExitOnError)
	password := fs.String("p", "", "password to hash (prompts on stdin if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := *password
	if p == "" {
		fmt.Fprint(os.Stderr, "password: ")
		if _, err := fmt.Scanln(&p); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
