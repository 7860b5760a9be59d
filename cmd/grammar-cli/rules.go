package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/domain/repository"
	sharedDB "grammar-api-app/internal/modules/shared/infrastructure/database"
)

// openRuleStore MySQLのルールストアを開く。テストで差し替える
var openRuleStore = func(global *globalOptions) (repository.RuleRepository, error) {
	cfg, err := global.loadConfig()
	if err != nil {
		return nil, err
	}
	repo, err := sharedDB.NewBunRuleRepository(&cfg.MySQL)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func newRulesCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage custom rule-table entries stored in MySQL",
		Long: `Custom rules extend the built-in rule table. They are read once when the
server starts, so restart the server after changing them.`,
	}

	cmd.AddCommand(
		newRulesListCmd(global),
		newRulesAddCmd(global),
		newRulesDisableCmd(global),
	)
	return cmd
}

// withRuleStore スキーマを用意したストアで処理を実行
func withRuleStore(cmd *cobra.Command, global *globalOptions, fn func(repository.RuleRepository) error) error {
	store, err := openRuleStore(global)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	return fn(store)
}

func newRulesListCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enabled custom rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuleStore(cmd, global, func(store repository.RuleRepository) error {
				rules, err := store.FindEnabled(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PATTERN\tREPLACEMENT\tCATEGORY\tMESSAGE")
				for _, r := range rules {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Pattern, r.Replacement, r.Category, r.Message)
				}
				return tw.Flush()
			})
		},
	}
}

func newRulesAddCmd(global *globalOptions) *cobra.Command {
	var category, message string

	cmd := &cobra.Command{
		Use:     "add <pattern> <replacement>",
		Short:   "Add a custom rule",
		Example: `  grammar-cli rules add "alot" "a lot" --category spelling`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule := domain.CustomRule{
				Pattern:     args[0],
				Replacement: args[1],
				Category:    domain.ParseCategory(category),
				Message:     message,
			}
			return withRuleStore(cmd, global, func(store repository.RuleRepository) error {
				if err := store.Create(cmd.Context(), rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %q -> %q (%s)\n", rule.Pattern, rule.Replacement, rule.Category)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", string(domain.CategoryOther), "edit category")
	cmd.Flags().StringVar(&message, "message", "", "explanation shown with the edit")
	return cmd
}

func newRulesDisableCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <pattern>",
		Short: "Disable custom rules matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuleStore(cmd, global, func(store repository.RuleRepository) error {
				n, err := store.Disable(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("no enabled rule matches %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "disabled %d rule(s)\n", n)
				return nil
			})
		},
	}
}
