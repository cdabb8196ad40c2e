// Command pipelinectl is the operator CLI: schema migrations, conversion
// reconciliation and session tokens.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xavierca1/institut-pipeline/internal/config"
)

var version = "dev"

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Operate the institut sales pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(load))
	root.AddCommand(conversionsCmd(load))
	root.AddCommand(tokenCmd(load))
	return root
}

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
