package job

import (
	"bytes"
	"context"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/archive"
	"github.com/PowerDNS/recipientbackup/backup"
)

// ErrPartialBackup is returned by Export when FailOnPartial is set and some
// recipients could not be archived.
var ErrPartialBackup = errors.New("partial backup")

// Export archives all contact recipients in a single read transaction and
// stores the compressed backup in st.
func Export(ctx context.Context, env *lmdb.Env, stores archive.Stores, st simpleblob.Interface, opts ExportOptions, l logrus.FieldLogger) (stats ExportStats, err error) {
	defer func() {
		metricRuns.WithLabelValues("export", result(err)).Inc()
	}()
	t0 := time.Now()
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.InstanceID == "" {
		return stats, errors.New("export: instance id required")
	}
	l = l.WithField("job", "export")

	var buf bytes.Buffer
	fw := backup.NewFrameWriter(&buf)
	err = fw.WriteInfo(&backup.BackupInfo{
		Version:      backup.CurrentFormatVersion,
		BackupTimeMs: uint64(t0.UnixMilli()),
	})
	if err != nil {
		return stats, errors.Wrap(err, "write backup info")
	}

	stores.Recipients = ctxRecipients{RecipientStore: stores.Recipients, ctx: ctx}
	archiver := archive.NewContactArchiver(stores, l)
	var res archive.ArchiveResult
	err = env.View(func(txn *lmdb.Txn) error {
		var err error
		res, err = archiver.ArchiveRecipients(fw, archive.NewArchivingContext(), txn)
		return err
	})
	if err != nil {
		return stats, errors.Wrap(err, "archive recipients")
	}

	stats.Archived = res.Archived
	stats.Skipped = res.Skipped
	stats.Failed = len(res.Errors)
	stats.ErrorKinds = countKinds(res.Errors)
	for _, fe := range res.Errors {
		l.WithError(fe.Err).WithFields(logrus.Fields{
			"recipient_id": fe.RecipientID,
			"kind":         fe.Kind.String(),
		}).Debug("Recipient not archived")
	}
	if !res.Success() {
		l.WithFields(stats.Fields()).Warn("Backup is incomplete")
		if opts.FailOnPartial {
			return stats, errors.Wrapf(ErrPartialBackup, "%d recipients failed", stats.Failed)
		}
	}

	data, dds, err := backup.DumpData(buf.Bytes())
	if err != nil {
		return stats, errors.Wrap(err, "compress backup")
	}
	stats.StreamSize = dds.StreamSize
	stats.CompressedSize = dds.CompressedSize

	stats.Name = backup.Name(opts.Prefix, opts.InstanceID, t0)
	if err := st.Store(ctx, stats.Name, data); err != nil {
		return stats, errors.Wrap(err, "store backup")
	}
	stats.Duration = time.Since(t0)

	metricLastSuccess.WithLabelValues("export").SetToCurrentTime()
	metricLastBackupSize.Set(float64(len(data)))
	l.WithFields(stats.Fields()).Info("Stored backup")
	return stats, nil
}
