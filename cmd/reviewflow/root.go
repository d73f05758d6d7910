package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "reviewflow",
		Short:         "Drive review workflows from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.actor, "as", "", "Id of the principal performing the command")
	rootCmd.PersistentFlags().StringSliceVar(&flags.roles, "role", nil, "Role of the principal: editor, admin-editor or admin (repeatable)")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newCreateCommand(ctx))
	rootCmd.AddCommand(newPhaseCommand(ctx))
	rootCmd.AddCommand(newNextCommand(ctx))
	rootCmd.AddCommand(newTransitionCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newFindCommand(ctx))

	return rootCmd
}
