package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var manCmd = &cobra.Command{
	Use:    "man <dir>",
	Short:  "Generate man pages for every command.",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(args[0], 0755); err != nil {
			return fmt.Errorf("error creating %q: %w", args[0], err)
		}

		header := &doc.GenManHeader{
			Title:   "NFLOGD",
			Section: "8",
			Source:  "nflogd " + builtCommit,
		}

		// Leave the auto-generated date out for reproducible pages.
		rootCmd.DisableAutoGenTag = true

		return doc.GenManTree(rootCmd, header, args[0])
	},
}
