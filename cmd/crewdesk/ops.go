package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"crewdesk/internal/adapter/store"
	"crewdesk/internal/domain"
	"crewdesk/internal/infra/config"
)

// runEnqueue adds one item to the sync queue. Used by back-office jobs and
// for manual retries.
func runEnqueue(args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	configPath := fs.String("config", "crewdesk.yaml", "config file path")
	itemType := fs.String("type", "", "item type: time_entry, employee, customer, invoice")
	reference := fs.String("ref", "", "back-office reference id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *itemType == "" || *reference == "" {
		return fmt.Errorf("-type and -ref are required")
	}

	switch domain.ItemType(*itemType) {
	case domain.ItemTimeEntry, domain.ItemEmployee, domain.ItemCustomer, domain.ItemInvoice:
	default:
		return fmt.Errorf("unknown item type %q", *itemType)
	}

	st, err := openStore(*configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Enqueue(context.Background(), domain.QueueItem{
		Type:        domain.ItemType(*itemType),
		ReferenceID: *reference,
	})
	if err != nil {
		return domain.WrapOp("enqueue item", err)
	}
	fmt.Printf("enqueued %s\n", id)
	return nil
}

// runStatus prints the connection status and recent sync history.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "crewdesk.yaml", "config file path")
	limit := fs.Int("n", 20, "number of log entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(*configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	conn, err := st.Get(ctx)
	if err != nil {
		fmt.Println("connection: not configured")
	} else {
		fmt.Printf("connection: %s", conn.Status)
		if conn.StatusDetail != "" {
			fmt.Printf(" (%s)", conn.StatusDetail)
		}
		fmt.Println()
		if conn.CompanyFile != "" {
			fmt.Printf("company file: %s (qbxml %s)\n", conn.CompanyFile, conn.ProductVersion)
		}
	}

	pending, err := st.HasPending(ctx)
	if err != nil {
		return domain.WrapOp("check pending work", err)
	}
	fmt.Printf("pending work: %v\n\n", pending)

	entries, err := st.Recent(ctx, *limit)
	if err != nil {
		return domain.WrapOp("read sync log", err)
	}
	for _, e := range entries {
		fmt.Printf("%s  %-9s %-18s %-6s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Direction, e.Operation, e.Status, e.Detail)
	}
	return nil
}

func openStore(configPath string) (*store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return store.Open(cfg.Store.Path, quiet)
}
