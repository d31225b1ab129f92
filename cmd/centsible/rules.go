package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/centsible/centsible/internal/cli"
	"github.com/centsible/centsible/internal/engine"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/rules"
	"github.com/centsible/centsible/internal/service"
	"github.com/centsible/centsible/internal/storage"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage transaction import rules",
		Long: `Manage the rules applied to transactions during import.

A rule pairs matching criteria (a boolean tree of field conditions) with
a list of actions (set category, set vendor, add tags, ...). Rules run in
priority order; by default the first matching rule stops processing.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			ruleList, err := store.GetActiveRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(ruleList) == 0 {
				fmt.Println(cli.InfoStyle.Render("No rules found. Use 'centsible rules add' to create one.")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Println(cli.FormatTitle("Import Rules")) //nolint:forbidigo // User-facing output

			rows := make([][]string, 0, len(ruleList))
			for _, rule := range ruleList {
				rows = append(rows, []string{
					strconv.FormatInt(rule.ID, 10),
					rule.Name,
					strconv.Itoa(rule.Priority),
					strconv.Itoa(rule.SchemaVersion),
					formatStop(&rule),
				})
			}
			fmt.Println(cli.RenderTable( //nolint:forbidigo // User-facing output
				[]string{"ID", "Name", "Priority", "Schema", "Stop"}, rows))
			return nil
		},
	}
}

func formatStop(rule *model.Rule) string {
	if rule.ShouldStop() {
		return "yes"
	}
	return "no"
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new rule",
		Long: `Add a new rule with criteria and actions given as JSON.

Both --criteria and --actions accept inline JSON or @path/to/file.

Examples:
  centsible rules add "Coffee shops" \
    --criteria '{"version":2,"root":{"type":"condition","field":"description","matchType":"contains","pattern":"coffee"}}' \
    --actions '{"version":2,"actions":[{"type":"set_category","value":3}]}'

  centsible rules add "Payroll" --criteria @payroll.json --actions @payroll-actions.json --priority 90`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesAdd,
	}

	cmd.Flags().String("criteria", "", "Criteria JSON or @file (required)")
	cmd.Flags().String("actions", "", "Actions JSON or @file (required)")
	cmd.Flags().Int("priority", 0, "Rule priority; higher runs first")
	cmd.Flags().Bool("continue", false, "Keep evaluating later rules after this one matches")
	_ = cmd.MarkFlagRequired("criteria")
	_ = cmd.MarkFlagRequired("actions")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	criteria, err := flagOrFile(cmd, "criteria")
	if err != nil {
		return err
	}
	actions, err := flagOrFile(cmd, "actions")
	if err != nil {
		return err
	}
	priority, _ := cmd.Flags().GetInt("priority")
	keepGoing, _ := cmd.Flags().GetBool("continue")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	if err := checkRuleBlobs(ctx, store, criteria, actions); err != nil {
		return err
	}

	rule := &model.Rule{
		Name:          args[0],
		Criteria:      criteria,
		Actions:       actions,
		Priority:      priority,
		SchemaVersion: model.SchemaVersionTree,
		IsActive:      true,
	}
	if keepGoing {
		stop := false
		rule.StopProcessing = &stop
	}

	if err := store.CreateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created rule %q (ID: %d)", rule.Name, rule.ID))) //nolint:forbidigo // User-facing output
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.DeleteRule(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func rulesValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate rule criteria and actions without saving",
		Long: `Validate criteria and/or actions JSON without creating a rule.

Reports every problem found rather than stopping at the first one.`,
		RunE: runRulesValidate,
	}

	cmd.Flags().String("criteria", "", "Criteria JSON or @file")
	cmd.Flags().String("actions", "", "Actions JSON or @file")

	return cmd
}

func runRulesValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	criteria, err := flagOrFile(cmd, "criteria")
	if err != nil {
		return err
	}
	actions, err := flagOrFile(cmd, "actions")
	if err != nil {
		return err
	}
	if criteria == "" && actions == "" {
		return fmt.Errorf("nothing to validate; pass --criteria and/or --actions")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	if err := checkRuleBlobs(ctx, store, criteria, actions); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Valid")) //nolint:forbidigo // User-facing output
	return nil
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Dry-run a rule against stored transactions",
		Long: `Evaluate a rule against already-imported transactions and show what it
would change, without writing anything.

Examples:
  centsible rules test 4
  centsible rules test 4 --start-date 2026-01-01 --limit 50`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesTest,
	}

	cmd.Flags().String("start-date", "", "Only test transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "Only test transactions on or before this date (YYYY-MM-DD)")
	cmd.Flags().Int64("account", 0, "Only test transactions in this account")
	cmd.Flags().Int("limit", 0, "Maximum number of transactions to scan")

	return cmd
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}

	filter, err := parseTransactionFilter(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	rule, err := store.GetRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get rule: %w", err)
	}

	imp := engine.New(store, newApplicator(store))
	result, err := imp.DryRunRule(ctx, rule, filter)
	if err != nil {
		return fmt.Errorf("dry run failed: %w", err)
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Rule Test: %s", rule.Name)))                           //nolint:forbidigo // User-facing output
	fmt.Printf("Scanned %d transactions, matched %d\n\n", result.Scanned, len(result.Matches))      //nolint:forbidigo // User-facing output

	if len(result.Matches) == 0 {
		fmt.Println(cli.InfoStyle.Render("No transactions match this rule.")) //nolint:forbidigo // User-facing output
		return nil
	}

	for _, match := range result.Matches {
		txn := match.Transaction
		fmt.Printf("✓ %s  %s  $%.2f\n", //nolint:forbidigo // User-facing output
			txn.Date.Format("2006-01-02"),
			cli.SuccessStyle.Render(txn.Description),
			txn.Amount)
		for field, change := range match.Changes {
			fmt.Printf("    %s: %v → %v\n", field, change.Old, change.New) //nolint:forbidigo // User-facing output
		}
	}
	return nil
}

func parseTransactionFilter(cmd *cobra.Command) (service.TransactionFilter, error) {
	var filter service.TransactionFilter

	if startStr, _ := cmd.Flags().GetString("start-date"); startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return filter, fmt.Errorf("invalid start date format (use YYYY-MM-DD): %w", err)
		}
		filter.StartDate = &start
	}
	if endStr, _ := cmd.Flags().GetString("end-date"); endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return filter, fmt.Errorf("invalid end date format (use YYYY-MM-DD): %w", err)
		}
		filter.EndDate = &end
	}
	filter.AccountID, _ = cmd.Flags().GetInt64("account")
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	return filter, nil
}

// checkRuleBlobs validates criteria and actions, printing every problem
// before failing.
func checkRuleBlobs(ctx context.Context, store *storage.SQLiteStorage, criteria, actions string) error {
	var problems []string

	if criteria != "" {
		result := rules.Validate(criteria)
		problems = append(problems, result.Errors...)
	}
	if actions != "" {
		result := newApplicator(store).ValidateActions(ctx, actions, 0)
		problems = append(problems, result.Errors...)
	}

	if len(problems) == 0 {
		return nil
	}
	for _, problem := range problems {
		fmt.Println(cli.FormatError(problem)) //nolint:forbidigo // User-facing output
	}
	return fmt.Errorf("rule validation failed with %d problem(s)", len(problems))
}

// flagOrFile reads a string flag, loading file contents when the value
// starts with @.
func flagOrFile(cmd *cobra.Command, name string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	if !strings.HasPrefix(value, "@") {
		return value, nil
	}
	data, err := os.ReadFile(value[1:]) //nolint:gosec // User-supplied path
	if err != nil {
		return "", fmt.Errorf("failed to read %s file: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
