package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
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

		if err := mgr.ClearAccount(acct.UUID); err != nil {
			return err
		}
		fmt.Printf("Signed out %s\n", acct.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
