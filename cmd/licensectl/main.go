// licensectl manages beta license keys from the command line:
// generate, list, check, revoke and stats.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/notelift/notelift-backend/internal/licenses"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db"
	"github.com/notelift/notelift-backend/pkg/logger"
	"gorm.io/gorm"
)

const usage = `usage: licensectl <command> [flags]

commands:
  generate  -count N -notes "..." -created-by NAME -output FILE
  list      -active-only
  check     <LICENSE_KEY>
  revoke    <LICENSE_KEY>
  stats
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "licensectl"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := licenses.NewService(licenses.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create license service", err)
		os.Exit(1)
	}

	var runErr error
	switch os.Args[1] {
	case "generate":
		runErr = cmdGenerate(ctx, dbClient, os.Args[2:])
	case "list":
		runErr = cmdList(ctx, svc, os.Args[2:])
	case "check":
		runErr = cmdCheck(ctx, svc, os.Args[2:])
	case "revoke":
		runErr = cmdRevoke(ctx, svc, os.Args[2:])
	case "stats":
		runErr = cmdStats(ctx, svc)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func cmdGenerate(ctx context.Context, dbClient *db.Client, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	count := fs.Int("count", 1, "number of keys to generate")
	notes := fs.String("notes", "", "notes about this batch")
	createdBy := fs.String("created-by", "admin-cli", "admin username")
	output := fs.String("output", "", "optional file to save the keys to")
	fs.Parse(args)

	// The whole batch commits or none of it does.
	var keys []string
	err := dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		svc, err := licenses.NewService(licenses.NewRepository(tx))
		if err != nil {
			return err
		}
		keys, err = svc.Generate(ctx, *count, *createdBy, *notes)
		return err
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		fmt.Println(key)
	}
	fmt.Printf("generated %d key(s)\n", len(keys))

	if *output != "" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "# Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "# Notes: %s\n\n", orNA(*notes))
		for _, key := range keys {
			sb.WriteString(key + "\n")
		}
		if err := os.WriteFile(*output, []byte(sb.String()), 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		fmt.Printf("saved to %s\n", *output)
	}
	return nil
}

func cmdList(ctx context.Context, svc licenses.Service, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	activeOnly := fs.Bool("active-only", false, "show only active keys")
	fs.Parse(args)

	items, err := svc.List(ctx, *activeOnly)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no license keys found")
		return nil
	}

	fmt.Printf("license keys (%d total)\n\n", len(items))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSTATUS\tUSAGE\tWORKSPACE\tCREATED\tNOTES")
	for _, item := range items {
		status := "active"
		if !item.IsActive {
			status = "revoked"
		}
		used := "available"
		if item.IsUsed {
			used = "used"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			item.Key,
			status,
			used,
			item.WorkspaceName,
			item.CreatedAt.Format("2006-01-02"),
			item.Notes,
		)
	}
	return w.Flush()
}

func cmdCheck(ctx context.Context, svc licenses.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("check requires exactly one license key argument")
	}

	result, err := svc.Validate(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Valid:   %t\n", result.Valid)
	fmt.Printf("Used:    %t\n", result.IsUsed)
	fmt.Printf("Message: %s\n", result.Message)
	if result.OwnerUserID != nil {
		fmt.Printf("User ID: %d\n", *result.OwnerUserID)
	}
	return nil
}

func cmdRevoke(ctx context.Context, svc licenses.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("revoke requires exactly one license key argument")
	}

	found, err := svc.Revoke(ctx, args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("license key not found")
	}
	fmt.Println("revoked successfully")
	return nil
}

func cmdStats(ctx context.Context, svc licenses.Service) error {
	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("license key statistics")
	fmt.Printf("Total:      %d\n", stats.Total)
	fmt.Printf("Active:     %d\n", stats.Active)
	fmt.Printf("Revoked:    %d\n", stats.Revoked)
	fmt.Printf("Used:       %d\n", stats.Used)
	fmt.Printf("Available:  %d\n", stats.Available)
	return nil
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
