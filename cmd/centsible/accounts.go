package main

import (
	"fmt"
	"strconv"

	"github.com/centsible/centsible/internal/cli"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println(cli.InfoStyle.Render("No accounts found. Use 'centsible accounts add' to create one.")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Println(cli.FormatTitle("Accounts")) //nolint:forbidigo // User-facing output

			rows := make([][]string, 0, len(accounts))
			for _, account := range accounts {
				rows = append(rows, []string{
					strconv.FormatInt(account.ID, 10),
					account.Name,
					account.Type,
					account.Institution,
				})
			}
			fmt.Println(cli.RenderTable([]string{"ID", "Name", "Type", "Institution"}, rows)) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new account",
		Long: `Add a new bank account.

Examples:
  centsible accounts add "Everyday Checking" --type checking --institution "First National"
  centsible accounts add "Travel Card" --type credit`,
		Args: cobra.ExactArgs(1),
		RunE: runAccountsAdd,
	}

	cmd.Flags().String("type", "checking", "Account type (checking, savings, credit)")
	cmd.Flags().String("institution", "", "Institution name")

	return cmd
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	accountType, _ := cmd.Flags().GetString("type")
	institution, _ := cmd.Flags().GetString("institution")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	account, err := store.CreateAccount(ctx, args[0], accountType, institution)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %q (ID: %d)", account.Name, account.ID))) //nolint:forbidigo // User-facing output
	return nil
}
