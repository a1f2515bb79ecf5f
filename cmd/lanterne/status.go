package main

import (
	"fmt"
	"time"

	"github.com/lanterne-launcher/lanterne/internal/auth"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active account and token state",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cfg, err := newManager()
		if err != nil {
			return err
		}

		acct, err := mgr.LoadAccount()
		if err != nil {
			return err
		}
		if acct == nil {
			fmt.Println("No account signed in")
			return nil
		}

		skew := auth.DefaultExpirySkew
		if cfg.ExpirySkew.Duration > 0 {
			skew = cfg.ExpirySkew.Duration
		}

		state := "valid"
		if acct.NeedsRefresh(time.Now(), skew) {
			state = "needs refresh"
		}

		fmt.Printf("Account:  %s\n", acct.Username)
		fmt.Printf("UUID:     %s\n", acct.UUID)
		if acct.XboxAccount.Gamertag != "" {
			fmt.Printf("Gamertag: %s\n", acct.XboxAccount.Gamertag)
		}
		fmt.Printf("Expires:  %s (%s)\n",
			time.UnixMilli(acct.ExpiresAt).Local().Format(time.RFC3339), state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
