package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PowerDNS/recipientbackup/job"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Bool("fail-on-partial", false,
		"Do not store the backup if any recipient failed, overrides backup.fail_on_partial")
}

var exportCmd = &cobra.Command{
	Use:          "export",
	Short:        "Export all contact recipients to a new backup",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer writeMetrics()

		opts := job.ExportOptions{
			Prefix:        conf.Backup.Prefix,
			FailOnPartial: conf.Backup.FailOnPartial,
		}
		if cmd.Flags().Changed("fail-on-partial") {
			failOnPartial, err := cmd.Flags().GetBool("fail-on-partial")
			if err != nil {
				return err
			}
			opts.FailOnPartial = failOnPartial
		}
		instanceID, err := conf.InstanceID()
		if err != nil {
			return err
		}
		opts.InstanceID = instanceID

		st, err := openStorage(rootCtx)
		if err != nil {
			return err
		}
		env, s, err := openStore(true)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := job.Export(rootCtx, env, s.Stores(), st, opts, logrus.StandardLogger())
		if err != nil {
			return err
		}
		fmt.Println(stats.Name)
		return nil
	},
}
