package archive

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/backup"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// DistantPastUnregisteredTimestamp is archived for recipients that are known
// to be unregistered without a known time. 0 would read back as registered.
const DistantPastUnregisteredTimestamp uint64 = 1

// ArchiveResult is the outcome of an archive pass
type ArchiveResult struct {
	Archived int
	Skipped  int
	Errors   []*FrameError
}

// Success reports if no recipient failed. Otherwise the result is a partial
// success and the caller decides whether that is acceptable.
func (r ArchiveResult) Success() bool {
	return len(r.Errors) == 0
}

// ContactArchiver writes contact recipient frames
type ContactArchiver struct {
	stores Stores
	l      logrus.FieldLogger
}

func NewContactArchiver(stores Stores, l logrus.FieldLogger) *ContactArchiver {
	return &ContactArchiver{
		stores: stores,
		l:      l.WithField("component", "contact_archiver"),
	}
}

// ArchiveRecipients writes a frame for every contact recipient in the
// recipient store. Failures of single recipients are collected in the result.
// The error return is only used when the pass itself cannot be performed.
func (a *ContactArchiver) ArchiveRecipients(w *backup.FrameWriter, actx *ArchivingContext, txn *lmdb.Txn) (ArchiveResult, error) {
	var res ArchiveResult

	whitelisted, err := a.stores.Profiles.WhitelistedAddresses(txn)
	if err != nil {
		return res, errors.Wrap(err, "read whitelist")
	}
	whitelist := recipient.NewAddressSet(whitelisted...)
	blocked, err := a.stores.Blocks.BlockedAddresses(txn)
	if err != nil {
		return res, errors.Wrap(err, "read block list")
	}

	err = a.stores.Recipients.EnumerateAll(txn, func(r *recipient.Recipient) error {
		addr := r.Address.Normalized()
		if addr.IsEmpty() {
			res.Skipped++
			metricRecipientsSkipped.Inc()
			a.l.WithField("rowid", r.RowID).Debug("Skipping recipient without identifiers")
			return nil
		}
		id := actx.AssignRecipientID(addr)

		c, ferr := a.contactFor(txn, id, r, addr, whitelist, blocked)
		if ferr == nil {
			ferr = WriteFrame(w, id, func() (*backup.Frame, error) {
				return backup.NewContactFrame(uint64(id), c), nil
			})
		}
		if ferr != nil {
			res.Errors = append(res.Errors, ferr)
			metricArchiveErrors.WithLabelValues(ferr.Kind.String()).Inc()
			a.l.WithError(ferr).WithFields(logrus.Fields{
				"recipient_id": id,
				"rowid":        r.RowID,
			}).Warn("Failed to archive recipient")
			return nil
		}
		res.Archived++
		metricRecipientsArchived.Inc()
		return nil
	})
	if err != nil {
		return res, errors.Wrap(err, "enumerate recipients")
	}

	a.l.WithFields(logrus.Fields{
		"archived": res.Archived,
		"skipped":  res.Skipped,
		"errors":   len(res.Errors),
	}).Info("Archived contact recipients")
	return res, nil
}

func (a *ContactArchiver) contactFor(
	txn *lmdb.Txn,
	id RecipientID,
	r *recipient.Recipient,
	addr recipient.Address,
	whitelist, blocked *recipient.AddressSet,
) (*backup.Contact, *FrameError) {
	c := &backup.Contact{
		Blocked:        blocked.Contains(addr),
		ProfileSharing: whitelist.Contains(addr),
	}

	if r.IsRegistered() {
		c.Registered = backup.RegisteredRegistered
	} else {
		c.Registered = backup.RegisteredNotRegistered
		c.UnregisteredTimestamp = DistantPastUnregisteredTimestamp
		if ts, known := r.Registration.UnregisteredAt(); known {
			c.UnregisteredTimestamp = ts
		}
	}

	if addr.ACI != nil {
		c.ACI = addr.ACI.Bytes()
	}
	if addr.PNI != nil {
		c.PNI = addr.PNI.Bytes()
	}
	if addr.E164 != nil {
		e := addr.E164.Uint64()
		c.E164 = &e
	}

	hidden, err := a.stores.Hiding.IsHiddenRecipient(txn, r)
	if err != nil {
		return nil, newFrameError(id, KindDatabaseReadFailed, errors.Wrap(err, "hidden state"))
	}
	c.Hidden = hidden

	if addr.ACI != nil {
		sc, err := a.stores.Stories.StoryContext(txn, *addr.ACI)
		if err != nil {
			return nil, newFrameError(id, KindDatabaseReadFailed, errors.Wrap(err, "story context"))
		}
		c.HideStory = sc != nil && sc.IsHidden
	}

	p, err := a.stores.Profiles.UserProfile(txn, addr)
	if err != nil {
		return nil, newFrameError(id, KindDatabaseReadFailed, errors.Wrap(err, "profile"))
	}
	if p != nil {
		if len(p.ProfileKey) > 0 {
			c.ProfileKey = p.ProfileKey
		}
		c.ProfileGivenName = p.GivenName
		c.ProfileFamilyName = p.FamilyName
	}
	return c, nil
}
