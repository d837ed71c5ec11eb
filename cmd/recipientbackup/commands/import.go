package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PowerDNS/recipientbackup/job"
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("abort-on-error", false,
		"Roll back the whole import on the first failed frame, overrides restore.abort_on_error")
	importCmd.Flags().StringP("prefix", "p", "", "Prefix used to find the newest backup, overrides restore.prefix")
}

var importCmd = &cobra.Command{
	Use:          "import [name]",
	Short:        "Restore contact recipients from a backup, the newest one by default",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer writeMetrics()

		opts := job.ImportOptions{
			Prefix:       conf.RestorePrefix(),
			AbortOnError: conf.Restore.AbortOnError,
		}
		if cmd.Flags().Changed("abort-on-error") {
			abort, err := cmd.Flags().GetBool("abort-on-error")
			if err != nil {
				return err
			}
			opts.AbortOnError = abort
		}
		if prefix, _ := cmd.Flags().GetString("prefix"); prefix != "" {
			opts.Prefix = prefix
		}
		var name string
		if len(args) > 0 {
			name = args[0]
		}

		st, err := openStorage(rootCtx)
		if err != nil {
			return err
		}
		env, s, err := openStore(false)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = job.Import(rootCtx, env, s.Stores(), st, name, opts, logrus.StandardLogger())
		return err
	},
}
