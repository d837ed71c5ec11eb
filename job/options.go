// Package job runs complete backup exports and imports: it owns the LMDB
// transactions, the blob storage and the reporting around the archiver and
// the restorer.
package job

import (
	"context"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/PowerDNS/recipientbackup/archive"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// DefaultPrefix is the default blob name prefix for backups
const DefaultPrefix = "recipients"

// ExportOptions configure Export
type ExportOptions struct {
	Prefix     string
	InstanceID string
	// FailOnPartial stores no backup if any recipient failed to archive
	FailOnPartial bool
}

// ImportOptions configure Import
type ImportOptions struct {
	// Prefix is used to find the newest backup when no name is given
	Prefix string
	// AbortOnError rolls back the whole import on the first failed frame.
	// Otherwise only the changes of the failed frame are rolled back.
	AbortOnError bool
}

// ctxRecipients checks the context between recipients during enumeration
type ctxRecipients struct {
	archive.RecipientStore
	ctx context.Context
}

func (c ctxRecipients) EnumerateAll(txn *lmdb.Txn, f func(r *recipient.Recipient) error) error {
	return c.RecipientStore.EnumerateAll(txn, func(r *recipient.Recipient) error {
		if err := c.ctx.Err(); err != nil {
			return err
		}
		return f(r)
	})
}
