package subcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/scitags/go-nflog/rules"
	"github.com/spf13/cobra"
)

func init() {
	RuleCmd.PersistentFlags().StringVar(&ruleConfPath, "rule-conf", "", "YAML file with the rule configuration")
	RuleCmd.PersistentFlags().Uint16Var(&ruleGroup, "rule-group", 0, "NFLOG group to log packets to")
	RuleCmd.PersistentFlags().StringVar(&ruleMatch, "match", "", "nftables expression selecting the packets to log")
	RuleCmd.PersistentFlags().StringVar(&rulePrefix, "prefix", "", "prefix attached to logged packets")

	RuleCmd.AddCommand(ruleShowCmd)
	RuleCmd.AddCommand(ruleHoldCmd)
}

var (
	ruleConfPath string
	ruleGroup    uint16
	ruleMatch    string
	rulePrefix   string

	RuleCmd = &cobra.Command{
		Use:   "rule",
		Short: "Manage the nftables rules feeding an NFLOG group.",
	}

	ruleShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the rule that would be installed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ruleConf()
			if err != nil {
				return err
			}
			fmt.Println(c.Rule())
			return nil
		},
	}

	ruleHoldCmd = &cobra.Command{
		Use:   "hold",
		Short: "Install the rule and remove it upon receiving SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ruleConf()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			installed, err := rules.Install(ctx, c)
			if err != nil {
				return err
			}

			current, err := installed.Rules(ctx)
			if err != nil {
				slog.Warn("error listing the installed rules", "err", err)
			}
			for _, r := range current {
				slog.Info("installed rule", "chain", r.Chain, "rule", r.Rule)
			}

			<-ctx.Done()

			return installed.Remove(context.Background())
		},
	}
)

func ruleConf() (rules.Config, error) {
	var c rules.Config

	b := []byte("{}")
	if ruleConfPath != "" {
		var err error
		if b, err = os.ReadFile(ruleConfPath); err != nil {
			return c, fmt.Errorf("error reading the rule configuration: %w", err)
		}
	}

	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("error parsing the rule configuration: %w", err)
	}

	if ruleGroup != 0 {
		c.Group = ruleGroup
	}
	if ruleMatch != "" {
		c.Match = ruleMatch
	}
	if rulePrefix != "" {
		c.Prefix = rulePrefix
	}

	return c, nil
}
