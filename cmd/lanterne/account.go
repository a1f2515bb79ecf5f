package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored Microsoft accounts",
}

var accountListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored accounts",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		listed, err := mgr.ListAccounts()
		if err != nil {
			return err
		}
		if len(listed) == 0 {
			fmt.Println("No accounts stored")
			return nil
		}

		active, err := mgr.LoadAccount()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UUID\tNAME\tEXPIRES\tACTIVE")
		for _, acct := range listed {
			marker := ""
			if active != nil && active.UUID == acct.UUID {
				marker = "*"
			}
			expires := time.UnixMilli(acct.ExpiresAt).Local().Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acct.UUID, acct.Name, expires, marker)
		}
		w.Flush()
		return nil
	},
}

var accountSelectCmd = &cobra.Command{
	Use:   "select <uuid>",
	Short: "Make an account active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		acct, err := mgr.SelectAccount(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Active account: %s (%s)\n", acct.Username, acct.UUID)
		return nil
	},
}

var removeAll bool

var accountRemoveCmd = &cobra.Command{
	Use:     "remove [uuid]",
	Short:   "Remove an account (the active one if no uuid is given)",
	Aliases: []string{"rm"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		if removeAll {
			if !confirm("Remove ALL stored accounts?") {
				fmt.Println("Aborted")
				return nil
			}
			if err := mgr.ClearAll(); err != nil {
				return err
			}
			fmt.Println("All accounts removed")
			return nil
		}

		uuid := ""
		if len(args) == 1 {
			uuid = args[0]
		}
		if !confirm("Remove account?") {
			fmt.Println("Aborted")
			return nil
		}
		if err := mgr.ClearAccount(uuid); err != nil {
			return err
		}
		fmt.Println("Account removed")
		return nil
	},
}

// confirm prompts y/N on a terminal; non-interactive runs proceed.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

func init() {
	accountRemoveCmd.Flags().BoolVar(&removeAll, "all", false, "Remove every stored account")
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountSelectCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	rootCmd.AddCommand(accountCmd)
}
