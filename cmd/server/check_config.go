package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fieldops/internal/platform/config"
	"fieldops/internal/scoring"
	"fieldops/internal/workflow"
)

func newCheckConfigCommand() *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate a rules file and print what it configures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := config.LoadRules(rulesPath)
			if err != nil {
				return fmt.Errorf("%s: %w", rulesPath, err)
			}
			printRulesSummary(cmd.OutOrStdout(), rules)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rules file to validate")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func printRulesSummary(w io.Writer, rules *config.Rules) {
	roles := rules.Policy.Roles.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	fmt.Fprintf(w, "roles: %s\n", strings.Join(names, " < "))

	minting := make([]string, len(rules.CodeMinting))
	for i, k := range rules.CodeMinting {
		minting[i] = string(k)
	}
	fmt.Fprintf(w, "code minting: %s\n", orNone(strings.Join(minting, ", ")))

	type count struct{ enabled, disabled int }
	perKind := map[workflow.Kind]*count{}
	for _, k := range workflow.Kinds() {
		perKind[k] = &count{}
	}
	for _, r := range rules.Policy.Rules.Rules() {
		if r.Enabled {
			perKind[r.Kind].enabled++
		} else {
			perKind[r.Kind].disabled++
		}
	}
	for _, k := range workflow.Kinds() {
		c := perKind[k]
		fmt.Fprintf(w, "transitions %s: %d enabled, %d disabled\n", k, c.enabled, c.disabled)
	}

	cfg := rules.Scoring
	fmt.Fprintf(w, "scoring: low <= %d, medium <= %d, high-risk override at %d\n",
		cfg.LowRiskMaxScore, cfg.MediumRiskMaxScore, cfg.HighRiskIndicatorThreshold)

	pillars := map[string]int{}
	for _, ind := range rules.Indicators {
		pillars[string(ind.PillarID)]++
	}
	keys := make([]string, 0, len(pillars))
	for p := range pillars {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "indicators: %d across %d pillars\n", len(rules.Indicators), len(keys))
	for _, p := range keys {
		fmt.Fprintf(w, "  %s: %d\n", p, pillars[p])
	}
	if high := countHighRisk(rules.Indicators); high < cfg.HighRiskIndicatorThreshold && len(rules.Indicators) > 0 {
		fmt.Fprintf(w, "warning: only %d high-risk indicators; the override can never fire\n", high)
	}
}

func countHighRisk(indicators []scoring.Indicator) int {
	n := 0
	for _, ind := range indicators {
		if ind.RiskLevel == scoring.RiskHigh {
			n++
		}
	}
	return n
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
