package main

import (
	"github.com/danmuck/robolink/internal/logging"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	schemaPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "robolink",
		Short:         "Serial host for the robot controller link",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.schemaPath, "schema", "", "code schema file (.toml or .yaml); defaults to the built-in table")

	cmd.AddCommand(
		newPortsCmd(),
		newRunCmd(opts),
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newConfigCmd(),
	)
	return cmd
}

// table resolves the code table from --schema or the built-in default.
func (o *rootOptions) table() (*codes.Table, error) {
	if o.schemaPath == "" {
		return codes.Default(), nil
	}
	return codes.LoadSchemaFile(o.schemaPath)
}
