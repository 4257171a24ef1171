package commands

import (
	"fmt"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/scrapers/amazon"
	"github.com/Achierius/amazon-transaction-scraper/lib/serviceutil"

	"github.com/spf13/cobra"
)

const defaultLoginTimeoutS = 300

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Waits for you to sign in to amazon in a browser, then saves the session cookies.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		client, err := amazon.NewClient(ctx, clientOptions(cfg))
		if err != nil {
			serviceutil.Fatal("failed to initialize amazon client", err)
		}

		timeout := time.Duration(cfg.LoginTimeoutS) * time.Second
		if cfg.LoginTimeoutS <= 0 {
			timeout = defaultLoginTimeoutS * time.Second
		}

		fmt.Println("Sign in to amazon in your browser, then export your session")
		fmt.Printf("cookies to %q. Waiting up to %s for a valid session...\n",
			cfg.CookieFile, timeout)

		err = client.WaitForLogin(ctx, timeout)
		if err != nil {
			serviceutil.Fatal("never saw a logged-in session", err)
		}
		err = client.SaveCookies()
		if err != nil {
			serviceutil.Fatal("failed to save session cookies", err)
		}

		fmt.Println("Session saved.")
	},
}
