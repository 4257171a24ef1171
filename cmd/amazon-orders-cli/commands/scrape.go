package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/configutil"
	"github.com/Achierius/amazon-transaction-scraper/lib/restyutil"
	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"
	"github.com/Achierius/amazon-transaction-scraper/lib/serviceutil"
	"github.com/Achierius/amazon-transaction-scraper/services/orders"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl       string `json:"base_url"`
	CookieFile    string `json:"cookie_file"`
	FetchTimeoutS int    `json:"fetch_timeout_s"`
	WaitTimeoutS  int    `json:"wait_timeout_s"`
	LoginTimeoutS int    `json:"login_timeout_s"`
	// defaults on, orders that never charged the card are useless
	// for statement reconciliation
	ExcludeUncharged *bool `json:"exclude_uncharged"`
}

// the config file is optional, missing files fall back to the
// built-in defaults
func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.CookieFile == "" {
		cfg.CookieFile = "amazon-cookies.json"
	}
	if cfg.ExcludeUncharged == nil {
		exclude := true
		cfg.ExcludeUncharged = &exclude
	}
	return cfg
}

func clientOptions(cfg Config) amazon.ClientOptions {
	return amazon.ClientOptions{
		BaseUrl:      cfg.BaseUrl,
		CookieFile:   cfg.CookieFile,
		FetchTimeout: time.Duration(cfg.FetchTimeoutS) * time.Second,
		WaitTimeout:  time.Duration(cfg.WaitTimeoutS) * time.Second,
	}
}

var scrapeFlags struct {
	year         *string
	startDate    *string
	endDate      *string
	startMonth   *string
	endMonth     *string
	printResults *bool
	dumpItems    *string
	dumpOrders   *string
}

func init() {
	flags := scrapeCmd.Flags()
	scrapeFlags.year = flags.String("year", "", "The order history year to scrape, e.g. 2025.")
	scrapeFlags.startDate = flags.String("start-date", "", "Only keep orders placed on or after this MM-DD date.")
	scrapeFlags.endDate = flags.String("end-date", "", "Only keep orders placed on or before this MM-DD date.")
	scrapeFlags.startMonth = flags.String("start-month", "", "Only keep orders placed in or after this MM month.")
	scrapeFlags.endMonth = flags.String("end-month", "", "Only keep orders placed in or before this MM month.")
	scrapeFlags.printResults = flags.Bool("print-results", false, "Render the scraped orders and items as tables.")
	scrapeFlags.dumpItems = flags.String("dump-items", "", "Write flattened items to this csv file.")
	scrapeFlags.dumpOrders = flags.String("dump-orders", "", "Write order records to this csv file.")

	scrapeCmd.MarkFlagRequired("year")
	scrapeCmd.MarkFlagsMutuallyExclusive("start-date", "start-month")
	scrapeCmd.MarkFlagsMutuallyExclusive("start-date", "end-month")
	scrapeCmd.MarkFlagsMutuallyExclusive("end-date", "start-month")
	scrapeCmd.MarkFlagsMutuallyExclusive("end-date", "end-month")

	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --year <YYYY> [filter flags] [output flags]",
	Short: "Scrapes a year of order history and exports it.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		client, err := amazon.NewClient(ctx, clientOptions(cfg))
		if err != nil {
			serviceutil.Fatal("failed to initialize amazon client", err)
		}
		client.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/amazon"))

		err = client.CheckLogin(ctx)
		if errors.Is(err, amazon.ErrNotLoggedIn) {
			serviceutil.Fatal("no valid session, run 'amazon-orders-cli login' first", err)
		}
		if err != nil {
			serviceutil.Fatal("failed to check login state", err)
		}

		result, err := orders.Run(ctx, client, orders.PipelineConfig{
			Range: orders.RangeSpec{
				Year:       *scrapeFlags.year,
				StartDate:  *scrapeFlags.startDate,
				EndDate:    *scrapeFlags.endDate,
				StartMonth: *scrapeFlags.startMonth,
				EndMonth:   *scrapeFlags.endMonth,
			},
			ExcludeUncharged: *cfg.ExcludeUncharged,
			ShowProgress:     true,
		})
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}

		if *scrapeFlags.printResults {
			orders.PrintResults(result.Orders)
		}

		// each export is attempted even if an earlier one failed
		failed := false
		if *scrapeFlags.dumpItems != "" {
			err := orders.WriteItemsCsv(*scrapeFlags.dumpItems, result.Orders)
			if err != nil {
				slog.Error("failed to export items", "path", *scrapeFlags.dumpItems, "err", err)
				failed = true
			}
		}
		if *scrapeFlags.dumpOrders != "" {
			err := orders.WriteOrdersCsv(*scrapeFlags.dumpOrders, result.Orders)
			if err != nil {
				slog.Error("failed to export orders", "path", *scrapeFlags.dumpOrders, "err", err)
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
	},
}
