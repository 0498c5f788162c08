package main

import (
	"fmt"

	"github.com/danmuck/robolink/internal/config"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate configuration files",
	}

	var kind string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template (host or codes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s template to %s\n", kind, args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", "host", "template kind: host|codes")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var checkKind string
	checkCmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a host config or code schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch checkKind {
			case "host":
				cfg, err := config.LoadHostConfig(args[0])
				if err != nil {
					return err
				}
				if cfg.SchemaPath != "" {
					if _, err := codes.LoadSchemaFile(cfg.SchemaPath); err != nil {
						return err
					}
				}
			case "codes":
				if _, err := codes.LoadSchemaFile(args[0]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown config kind: %s", checkKind)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s config at %s\n", checkKind, args[0])
			return nil
		},
	}
	checkCmd.Flags().StringVar(&checkKind, "kind", "host", "config kind: host|codes")

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
