package commands

import (
	"context"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/job"
	"github.com/PowerDNS/recipientbackup/lmdbenv"
	"github.com/PowerDNS/recipientbackup/lmdbstore"
)

// openStore opens the configured LMDB and its recipient stores.
// The returned env must be closed after use.
func openStore(readOnly bool) (*lmdb.Env, *lmdbstore.Store, error) {
	opts := conf.LMDB.Options
	if readOnly {
		opts.ReadOnly = true
		opts.Create = false
	}
	env, err := lmdbenv.NewWithOptions(conf.LMDB.Path, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open lmdb")
	}
	open := lmdbstore.Open
	if readOnly {
		open = lmdbstore.OpenReadOnly
	}
	s, err := open(env)
	if err != nil {
		_ = env.Close()
		return nil, nil, errors.Wrap(err, "open stores")
	}
	return env, s, nil
}

func openStorage(ctx context.Context) (simpleblob.Interface, error) {
	st, err := simpleblob.GetBackend(ctx, conf.Storage.Type, conf.Storage.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "storage backend %q", conf.Storage.Type)
	}
	return st, nil
}

// writeMetrics writes the metrics textfile, if configured. Errors are only
// logged, because the job itself already finished.
func writeMetrics() {
	path := conf.Metrics.Textfile
	if path == "" {
		return
	}
	if err := job.WriteMetrics(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Could not write metrics textfile")
	}
}
