package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"energyadmin/backend"
	"energyadmin/internal/config"
	"energyadmin/pages"
	"energyadmin/server"

	"github.com/spf13/cobra"
)

var (
	configPath string
	outPath    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "energyadmin",
	Short: "Energy plan subscription admin dashboard",
	Long: `Backend for the energy plan admin dashboard.

The plan and user tables live in memory and every call is answered after a
simulated network delay, failing now and then like a real remote service.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard api and event feed",
	RunE:  runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the billing report of the seeded store as xlsx",
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Path to the YAML config file")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "billing.xlsx", "Output file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf, err := config.GetConfig(configPath)
	if err != nil {
		return err
	}
	system, err := server.NewSystem(conf)
	if err != nil {
		log.Println("system initialization failed", err)
		return err
	}
	defer system.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return system.Start(ctx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	conf, err := config.GetConfig(configPath)
	if err != nil {
		return err
	}
	store, err := server.NewStore(conf, backend.Instant())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	billing := pages.NewBilling(store)
	if err = billing.Activate(ctx); err != nil {
		return fmt.Errorf("load billing: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err = billing.Export(file); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "billing report written to %s (%d rows)\n", outPath, len(billing.Rows()))
	return nil
}
