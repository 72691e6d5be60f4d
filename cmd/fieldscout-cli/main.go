// Command fieldscout-cli runs a single scrape in-process and writes the
// records to a JSON file.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/use-agent/fieldscout/app"
	"github.com/use-agent/fieldscout/config"
)

var rootCmd = &cobra.Command{
	Use:   "fieldscout-cli",
	Short: "Prompt-guided scraper for directory and listing pages",
	Long: `fieldscout-cli extracts entity records (name, phone, email, address, ...)
from a listing page, following each entity to its detail page on request.

Configuration comes from FIELDSCOUT_* environment variables; a .env file
in the working directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if verbose {
			cfg.Log.Level = "debug"
		}
		cfg.Log.Format = "text"
		app.InitLogger(cfg.Log)
	},
}

var (
	cfg     *config.Config
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(crawlCmd, fieldsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
