package job

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/archive"
	"github.com/PowerDNS/recipientbackup/backup"
)

// ErrNoBackup is returned when no backup matches the prefix
var ErrNoBackup = errors.New("no backup found")

// LatestName returns the name of the newest backup with the prefix
func LatestName(ctx context.Context, st simpleblob.Interface, prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	list, err := st.List(ctx, prefix)
	if err != nil {
		return "", errors.Wrap(err, "list backups")
	}
	ni, ok := backup.Latest(list.Names(), prefix)
	if !ok {
		return "", errors.Wrapf(ErrNoBackup, "prefix %q", prefix)
	}
	return ni.FullName, nil
}

// LoadStream loads a backup blob and returns a reader positioned after the
// validated BackupInfo.
func LoadStream(ctx context.Context, st simpleblob.Interface, name string) (*backup.FrameReader, *backup.BackupInfo, error) {
	data, err := st.Load(ctx, name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load %s", name)
	}
	fr, info, err := ReadStream(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, name)
	}
	return fr, info, nil
}

// ReadStream uncompresses backup data and reads its BackupInfo
func ReadStream(data []byte) (*backup.FrameReader, *backup.BackupInfo, error) {
	raw, err := backup.LoadData(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "uncompress")
	}
	fr := backup.NewFrameReader(bytes.NewReader(raw))
	info, err := fr.ReadInfo()
	if err != nil {
		return nil, nil, err
	}
	if err := info.CheckVersion(); err != nil {
		return nil, nil, err
	}
	return fr, info, nil
}

// Import restores a backup in a single write transaction. If name is empty,
// the newest backup with opts.Prefix is used. Frames are restored in stream
// order, each in a nested transaction, so that a failed frame leaves no
// partial changes behind.
func Import(ctx context.Context, env *lmdb.Env, stores archive.Stores, st simpleblob.Interface, name string, opts ImportOptions, l logrus.FieldLogger) (stats ImportStats, err error) {
	defer func() {
		metricRuns.WithLabelValues("import", result(err)).Inc()
	}()
	t0 := time.Now()
	l = l.WithField("job", "import")

	if name == "" {
		name, err = LatestName(ctx, st, opts.Prefix)
		if err != nil {
			return stats, err
		}
	}
	stats.Name = name
	l = l.WithField("name", name)

	fr, info, err := LoadStream(ctx, st, name)
	if err != nil {
		return stats, err
	}
	stats.Version = info.Version
	stats.BackupTime = time.UnixMilli(int64(info.BackupTimeMs)).UTC()

	restorer := archive.NewContactRestorer(stores, l)
	rctx := archive.NewRestoringContext()
	var frameErrors []*archive.FrameError

	err = env.Update(func(txn *lmdb.Txn) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := fr.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "read frame")
			}
			stats.Frames++

			if f.Recipient == nil || f.Recipient.Contact == nil {
				stats.Unhandled++
				metricUnhandledFrames.Inc()
				l.WithFields(logrus.Fields{
					"frame":     stats.Frames,
					"item":      f.ItemTag,
					"recipient": f.Recipient != nil,
				}).Debug("Skipping frame without contact")
				continue
			}

			err = txn.Sub(func(sub *lmdb.Txn) error {
				return restorer.Restore(f.Recipient, rctx, sub)
			})
			if err == nil {
				stats.Restored++
				continue
			}
			var re *archive.RestoreError
			if !errors.As(err, &re) {
				return errors.Wrapf(err, "frame %d", stats.Frames)
			}
			stats.Failed++
			frameErrors = append(frameErrors, re.Errors...)
			if opts.AbortOnError {
				return err
			}
		}
	})
	stats.ErrorKinds = countKinds(frameErrors)
	stats.Duration = time.Since(t0)
	if err != nil {
		l.WithError(err).WithFields(stats.Fields()).Error("Import aborted, nothing was restored")
		return stats, err
	}

	metricLastSuccess.WithLabelValues("import").SetToCurrentTime()
	if stats.Failed > 0 {
		l.WithFields(stats.Fields()).Warn("Restored backup with failures")
	} else {
		l.WithFields(stats.Fields()).Info("Restored backup")
	}
	return stats, nil
}
