package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"carcare/internal/diagnosis"

	"github.com/spf13/cobra"
)

var rulesJSON bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the diagnostic rule table in use",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	matcher, err := diagnosis.NewMatcherFromFile(cfg.RulesPath)
	if err != nil {
		return err
	}
	rules := matcher.Rules()

	if rulesJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tPRIORITY\tPROBLEM\tKEYWORDS")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Severity, r.Priority, r.Problem, strings.Join(r.Keywords, ", "))
	}
	return tw.Flush()
}
