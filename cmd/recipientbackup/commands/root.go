package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"

	"github.com/PowerDNS/recipientbackup/config"
	"github.com/PowerDNS/recipientbackup/config/logger"
)

var (
	configFile   string
	instanceName string
	debug        bool
	logConfig    bool
	timeout      time.Duration
	conf         config.Config
)

var (
	// These are set by Execute
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// Set when the command timeout fired
	timedOut atomic.Bool
)

const (
	TimeoutExitCode = 75 // picked EX_TEMPFAIL from sysexits.h

	// Time a command gets to wind down after the timeout cancelled it
	shutdownGrace = 10 * time.Second
)

// applyTimeout cancels the root context after the timeout. Jobs abort their
// transaction when the context is cancelled, so nothing is half restored.
func applyTimeout() {
	if timeout <= 0 {
		return
	}
	logrus.WithField("timeout", timeout).Debug("Setting command timeout")
	time.AfterFunc(timeout, func() {
		logrus.Warn("Timeout reached")
		timedOut.Store(true)
		rootCancel()
		time.AfterFunc(shutdownGrace, func() {
			logrus.Error("Shutdown took too long, forcing exit")
			os.Exit(TimeoutExitCode)
		})
	})
}

var rootHelp = `This tool exports contact recipients from an LMDB database to backup
frames in blob storage, and restores them from such a backup.
`

var rootCmd = &cobra.Command{
	Use:   "recipientbackup",
	Short: "Export and restore contact recipient backups",
	Long:  rootHelp,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf = config.Default()
		conf.Version = version
		err := conf.LoadYAMLFile(configFile, true)
		if err != nil {
			logrus.Fatalf("Load config file %q: %v", configFile, err)
		}
		// Also check at this stage. A config must always be valid, even if you
		// later override some items.
		if err := conf.Check(); err != nil {
			logrus.Fatalf("Config file error: %v", err)
		}

		conf.Log = conf.Log.Merge(logger.FlagConfig)
		if debug {
			conf.Log.Level = "debug"
		}
		if instanceName != "" {
			conf.Backup.Instance = instanceName
		}
		if cmd.Flags().Changed("timeout") {
			conf.Timeout = timeout
		}
		timeout = conf.Timeout
		logger.Configure(conf.Log)
		logrus.WithField("version", version).Debug("Running")
		if logConfig {
			logrus.Infof("Effective configuration:\n%s\n", conf.String())
		}
		applyTimeout()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "recipientbackup.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVar(&logConfig, "log-config", false, "Log the evaluated configuration on startup")
	rootCmd.PersistentFlags().StringVarP(&instanceName, "instance", "i", "", "Instance name used in backup names, defaults to hostname")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0,
		fmt.Sprintf("Timeout for command execution, overrides the config (exit code %d)", TimeoutExitCode))
	logger.RegisterFlagsWith(rootCmd.PersistentFlags().StringVar)
}

func Execute() {
	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) && timedOut.Load() {
			logrus.Error("Context cancelled due to timeout")
			os.Exit(TimeoutExitCode)
		}
		logrus.WithError(err).Error("Error")
		os.Exit(1)
	}
}
