package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PowerDNS/recipientbackup/job"
)

func init() {
	rootCmd.AddCommand(backupsCmd)

	backupsCmd.AddCommand(backupsListCmd)
	backupsListCmd.Flags().StringP("prefix", "p", "", "Prefix filter, defaults to backup.prefix")
	backupsListCmd.Flags().BoolP("long", "l", false, "Add extra information, like size and age")
	backupsListCmd.Flags().Bool("info", false, "Load every backup to show its version and frame count (implies --long)")
	backupsListCmd.Flags().Int("concurrency", job.DefaultListConcurrency, "Number of backups to load in parallel with --info")

	backupsCmd.AddCommand(backupsDumpCmd)
	backupsDumpCmd.Flags().BoolP("local", "l", false, "Dump a local file instead of a remote backup")

	backupsCmd.AddCommand(backupsGetCmd)
	backupsGetCmd.Flags().StringP("output", "o", "", "Output filename, if not the same as the remote name")

	backupsCmd.AddCommand(backupsRemoveCmd)
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Remote backup operations (list, dump, get, remove)",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var backupsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List backups, oldest first",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		if prefix == "" {
			prefix = conf.Backup.Prefix
		}
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return err
		}
		withInfo, err := cmd.Flags().GetBool("info")
		if err != nil {
			return err
		}
		concurrency, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		list, err := job.ListBackups(ctx, st, prefix, withInfo, concurrency)
		if err != nil {
			return err
		}
		for _, li := range list {
			job.PrintListing(os.Stdout, li, long || withInfo)
		}
		return nil
	},
}

var backupsDumpCmd = &cobra.Command{
	Use:          "dump <name>",
	Short:        "Dump backup frames for debugging",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		local, err := cmd.Flags().GetBool("local")
		if err != nil {
			return err
		}

		var data []byte
		if local {
			data, err = os.ReadFile(args[0])
		} else {
			st, serr := openStorage(ctx)
			if serr != nil {
				return serr
			}
			data, err = st.Load(ctx, args[0])
		}
		if err != nil {
			return errors.Wrapf(err, "load %s", args[0])
		}

		fr, info, err := job.ReadStream(data)
		if err != nil {
			return err
		}
		return job.DumpFrames(os.Stdout, info, fr)
	},
}

var backupsGetCmd = &cobra.Command{
	Use:          "get <name>",
	Short:        "Download a backup",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		name := args[0]
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if output == "" {
			output = filepath.Base(name)
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		data, err := st.Load(ctx, name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), output)
		return nil
	},
}

var backupsRemoveCmd = &cobra.Command{
	Use:          "remove <name>",
	Short:        "Remove a backup",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		return st.Delete(ctx, args[0])
	},
}
