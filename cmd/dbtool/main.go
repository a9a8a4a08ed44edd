package main

import (
	"context"
	"dropoff-route-service/internal/adapters/repositories"
	"dropoff-route-service/internal/config"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/ports"
	"dropoff-route-service/internal/services"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found (using environment variables)")
	}

	if err := newRootCmd(context.Background(), os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context, out io.Writer) *cobra.Command {
	cfg := config.Default()
	driver := config.Get("STORE_DRIVER", cfg.StoreDriver)
	dsn := config.Get("STORE_DSN", cfg.StoreDSN)
	if url := config.Get("DATABASE_URL", ""); url != "" && config.Get("STORE_DSN", "") == "" {
		driver, dsn = "postgres", url
	}

	root := &cobra.Command{
		Use:          "dbtool",
		Short:        "Manage the best-known bound store",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&driver, "store", driver, "bound store: bolt, sqlite, postgres, redis or memory")
	root.PersistentFlags().StringVar(&dsn, "store-dsn", dsn, "bound store path or URL")

	open := func() (ports.BoundStore, error) {
		return repositories.OpenBoundStore(ctx, driver, dsn)
	}

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the bound store and its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.WithFields(log.Fields{"store": driver}).Info("Initializing bound store...")
			store, err := open()
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer store.Close()
			log.Info("Bound store ready.")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print every stored bound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open()
			if err != nil {
				return fmt.Errorf("print: %w", err)
			}
			defer store.Close()

			bounds, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("print: %w", err)
			}
			return printBounds(out, bounds)
		},
	})

	var fromDriver, fromDSN string
	merge := &cobra.Command{
		Use:   "merge",
		Short: "Fold another bound store into this one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dst, err := open()
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			defer dst.Close()

			src, err := repositories.OpenBoundStore(ctx, fromDriver, fromDSN)
			if err != nil {
				return fmt.Errorf("merge: open source: %w", err)
			}
			defer src.Close()

			rep, err := services.MergeBounds(ctx, dst, src, log.StandardLogger())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "merged %d bounds: %d updated, %d conflicts\n", rep.Seen, rep.Updated, rep.Conflicts)
			return nil
		},
	}
	merge.Flags().StringVar(&fromDriver, "from", "bolt", "source store driver")
	merge.Flags().StringVar(&fromDSN, "from-dsn", "", "source store path or URL")
	_ = merge.MarkFlagRequired("from-dsn")
	root.AddCommand(merge)

	return root
}

func printBounds(out io.Writer, bounds []domain.Bound) error {
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Instance < bounds[j].Instance })

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tCOST\tOPTIMAL\tUPDATED\tRUN")
	for _, b := range bounds {
		updated := ""
		if !b.UpdatedAt.IsZero() {
			updated = b.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%t\t%s\t%s\n", b.Instance, b.Cost, b.Optimal, updated, b.RunID)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print: %w", err)
	}

	total, optimal := services.SummarizeBounds(bounds)
	fmt.Fprintf(out, "%d bounds, %d optimal\n", total, optimal)
	return nil
}
