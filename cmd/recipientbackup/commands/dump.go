package commands

import (
	"fmt"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PowerDNS/recipientbackup/lmdbenv"
	"github.com/PowerDNS/recipientbackup/lmdbstore"
	"github.com/PowerDNS/recipientbackup/utils"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("dbi", "d", "", "Only output DBI with this exact name")
}

func dumpLMDB(env *lmdb.Env, only string) error {
	return env.View(func(txn *lmdb.Txn) error {
		for _, dbiName := range lmdbstore.DBINames {
			if only != "" && dbiName != only {
				continue
			}
			exists, err := lmdbenv.DBIExists(txn, dbiName)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			fmt.Printf("\n### %s\n\n", dbiName)

			dbi, err := txn.OpenDBI(dbiName, 0)
			if err != nil {
				return errors.Wrap(err, "dbi "+dbiName)
			}
			items, err := lmdbenv.ReadDBI(txn, dbi)
			if err != nil {
				return errors.Wrap(err, "read dbi "+dbiName)
			}
			for _, item := range items {
				fmt.Printf("%s  =  %s\n",
					utils.DisplayASCII(item.Key),
					utils.DisplayASCII(item.Val),
				)
			}
		}
		return nil
	})
}

var dumpCmd = &cobra.Command{
	Use:          "dump",
	Short:        "Dump the raw contents of the recipient DBIs",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, err := cmd.Flags().GetString("dbi")
		if err != nil {
			return err
		}
		opts := conf.LMDB.Options
		opts.ReadOnly = true
		opts.Create = false
		env, err := lmdbenv.NewWithOptions(conf.LMDB.Path, opts)
		if err != nil {
			return err
		}
		defer env.Close()
		return dumpLMDB(env, only)
	},
}
