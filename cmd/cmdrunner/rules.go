package main

import (
	"cmdrunner/internal/codec"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/format"
	"cmdrunner/internal/rules"

	"github.com/spf13/cobra"
)

var printFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rules",
}

var rulesPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the loaded rules with every flag spelled out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		set, err := loadRules(cmd, s)
		if err != nil {
			return err
		}
		return rules.Encode(cmd.OutOrStdout(), f, set.Definitions())
	},
}

var rulesExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example rule file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		return rules.Encode(cmd.OutOrStdout(), f, rules.Examples())
	},
}

var replacementsCmd = &cobra.Command{
	Use:     "replacements",
	Aliases: []string{"maps"},
	Short:   "Inspect search/replace maps",
}

var replacementsPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the loaded search/replace maps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		store, err := loadMaps(s)
		if err != nil {
			return err
		}
		return format.EncodeMaps(cmd.OutOrStdout(), f, store.Maps())
	},
}

var replacementsExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example search/replace file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		return format.EncodeMaps(cmd.OutOrStdout(), f, format.Examples())
	},
}

func outputFormat() (codec.Format, error) {
	f, err := codec.ParseFormat(printFormat)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrConfigParse, "invalid --format")
	}
	return f, nil
}

func init() {
	for _, c := range []*cobra.Command{rulesCmd, replacementsCmd} {
		c.PersistentFlags().StringVar(&printFormat, "format", "json", "Output format: json, yaml or toml")
	}
	rulesCmd.AddCommand(rulesPrintCmd, rulesExampleCmd)
	replacementsCmd.AddCommand(replacementsPrintCmd, replacementsExampleCmd)
}
