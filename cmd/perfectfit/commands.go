package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/syncdriver"
	"gopkg.in/yaml.v3"
)

var errConfirmationRequired = errors.New("refusing to destroy data without --yes")

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Open the store, verify its schema identity, and print row counts",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			counts, err := a.store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "store %s\nidentity %s\n", a.store.Path(), schema.IdentityHash)
			printCounts(out, schema.Tables, counts)
			return nil
		}),
	}
}

func newWipeCommand() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every row of every table and compact the file",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if !confirmed {
				return errConfirmationRequired
			}
			if err := a.store.WipeAll(cmd.Context()); err != nil {
				return err
			}
			if err := a.forgetSyncState(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store wiped")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the wipe")
	return cmd
}

func newResetCommand() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate every table",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if !confirmed {
				return errConfirmationRequired
			}
			if err := a.store.Reset(cmd.Context()); err != nil {
				return err
			}
			if err := a.forgetSyncState(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store reset")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the reset")
	return cmd
}

// exportDocument is the YAML snapshot written by the export command.
type exportDocument struct {
	IdentityHash   string                  `yaml:"identityHash"`
	ExportedAt     time.Time               `yaml:"exportedAt"`
	Customers      []records.Customer      `yaml:"customers"`
	Measurements   []records.Measurement   `yaml:"measurements"`
	Orders         []records.Order         `yaml:"orders"`
	WorkloadConfig *records.WorkloadConfig `yaml:"workloadConfig,omitempty"`
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every table to stdout as YAML",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			ctx := cmd.Context()
			repos := a.store.Repositories
			document := exportDocument{IdentityHash: schema.IdentityHash, ExportedAt: time.Now().UTC()}

			var err error
			if document.Customers, err = repos.Customers.GetAllList(ctx); err != nil {
				return err
			}
			if document.Measurements, err = repos.Measurements.GetAll(ctx); err != nil {
				return err
			}
			if document.Orders, err = repos.Orders.GetAll(ctx); err != nil {
				return err
			}
			if document.WorkloadConfig, err = repos.WorkloadConfigs.Get(ctx); err != nil {
				return err
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(document); err != nil {
				return err
			}
			return encoder.Close()
		}),
	}
}

func newPendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show how many rows await upload per table",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			counts, err := syncdriver.PendingCounts(cmd.Context(), a.store.Repositories)
			if err != nil {
				return err
			}
			lastSync, err := a.syncState.LastSyncTimestamp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printCounts(out, []string{schema.TableCustomers, schema.TableMeasurements, schema.TableOrders}, counts)
			fmt.Fprintf(out, "%-20s %d\n", "last_sync", lastSync)
			return nil
		}),
	}
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the configured sync service",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			driver, err := newSyncDriver(a)
			if err != nil {
				return err
			}
			if driver == nil {
				return errors.New("sync.remote_url is not configured")
			}
			result, runErr := driver.Run(cmd.Context())
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			if err := encoder.Encode(result); err != nil {
				return err
			}
			if err := encoder.Close(); err != nil {
				return err
			}
			return runErr
		}),
	}
}

// newSyncDriver builds a driver for the configured remote, or returns nil
// when no remote is configured.
func newSyncDriver(a *app) (*syncdriver.Driver, error) {
	if a.config.SyncRemoteURL == "" {
		return nil, nil
	}
	remote, err := syncdriver.NewHTTPRemote(syncdriver.HTTPRemoteConfig{
		Endpoint: a.config.SyncRemoteURL,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	return syncdriver.NewDriver(syncdriver.Config{
		Repositories: a.store.Repositories,
		Remote:       remote,
		State:        a.syncState,
		BatchSize:    a.config.SyncBatchSize,
		Logger:       a.logger,
		Metrics:      a.metrics,
	})
}

func printCounts(out io.Writer, tables []string, counts map[string]int64) {
	for _, table := range tables {
		fmt.Fprintf(out, "%-20s %d\n", table, counts[table])
	}
}
