package archive

import (
	"fmt"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/backup"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// ContactRestorer restores contact recipient frames
type ContactRestorer struct {
	stores Stores
	l      logrus.FieldLogger
}

func NewContactRestorer(stores Stores, l logrus.FieldLogger) *ContactRestorer {
	return &ContactRestorer{
		stores: stores,
		l:      l.WithField("component", "contact_restorer"),
	}
}

// restoredContact is the validated content of a contact frame
type restoredContact struct {
	addr recipient.Address
	// nil if the frame does not state a registration
	reg        *recipient.Registration
	profileKey []byte
}

func parseContact(c *backup.Contact) (restoredContact, error) {
	var rc restoredContact
	if c == nil {
		return rc, fmt.Errorf("recipient frame without contact")
	}

	switch c.Registered {
	case backup.RegisteredRegistered:
		reg := recipient.Registered()
		rc.reg = &reg
	case backup.RegisteredNotRegistered:
		reg := recipient.UnregisteredAt(c.UnregisteredTimestamp)
		rc.reg = &reg
	case backup.RegisteredUnknown:
		// timestamp is ignored
	default:
		return rc, fmt.Errorf("invalid registered value %d", uint32(c.Registered))
	}

	if c.ACI != nil {
		aci, err := recipient.ServiceIDFromBytes(c.ACI)
		if err != nil {
			return rc, fmt.Errorf("aci: %w", err)
		}
		rc.addr.ACI = &aci
	}
	if c.PNI != nil {
		pni, err := recipient.ServiceIDFromBytes(c.PNI)
		if err != nil {
			return rc, fmt.Errorf("pni: %w", err)
		}
		rc.addr.PNI = &pni
	}
	if c.E164 != nil {
		e, err := recipient.E164FromUint64(*c.E164)
		if err != nil {
			return rc, err
		}
		rc.addr.E164 = &e
	}
	rc.addr = rc.addr.Normalized()
	if rc.addr.IsEmpty() {
		return rc, fmt.Errorf("contact without identifiers")
	}

	if len(c.ProfileKey) > 0 {
		if len(c.ProfileKey) != backup.ProfileKeySize {
			return rc, fmt.Errorf("profile key must be %d bytes, got %d",
				backup.ProfileKeySize, len(c.ProfileKey))
		}
		rc.profileKey = c.ProfileKey
	}
	return rc, nil
}

// Restore applies one recipient frame to the stores. It returns a
// *RestoreError if the frame could not be restored. Any mutations done before
// the failure are only undone by aborting the transaction.
func (r *ContactRestorer) Restore(rec *backup.Recipient, rctx *RestoringContext, txn *lmdb.Txn) error {
	id := RecipientID(rec.ID)
	l := r.l.WithField("recipient_id", id)

	err := r.restore(rec, id, rctx, txn, l)
	if err != nil {
		for _, fe := range err.Errors {
			metricRestoreErrors.WithLabelValues(fe.Kind.String()).Inc()
		}
		l.WithError(err).Warn("Failed to restore recipient")
		return err
	}
	return nil
}

func (r *ContactRestorer) restore(rec *backup.Recipient, id RecipientID, rctx *RestoringContext, txn *lmdb.Txn, l logrus.FieldLogger) *RestoreError {
	c := rec.Contact
	rc, err := parseContact(c)
	if err != nil {
		return restoreFailure(id, KindInvalidProtoData, err)
	}

	// Recorded before any storage mutation, so that later frames can still
	// resolve this id if storing fails.
	rctx.Set(id, rc.addr)

	target, fe := r.mergeOrInsert(txn, id, rc, l)
	if fe != nil {
		return &RestoreError{RecipientID: id, Errors: []*FrameError{fe}}
	}

	if c.ProfileSharing {
		if err := r.stores.Profiles.AddToWhitelist(txn, rc.addr); err != nil {
			return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "whitelist"))
		}
	}
	if c.Blocked {
		if err := r.stores.Blocks.AddBlockedAddress(txn, rc.addr); err != nil {
			return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "block list"))
		}
	}
	if c.Hidden {
		// Restored from a backup, so not initiated on this device
		if err := r.stores.Hiding.AddHiddenRecipient(txn, target, false); err != nil {
			return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "hide"))
		}
	}

	// Story visibility only ever becomes hidden here
	if c.HideStory && rc.addr.ACI != nil {
		sc, err := r.stores.Stories.GetOrCreateStoryContext(txn, *rc.addr.ACI)
		if err != nil {
			return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "story context"))
		}
		if err := r.stores.Stories.UpdateStoryContext(txn, sc, true); err != nil {
			return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "story context"))
		}
	}

	err = r.stores.Profiles.SetProfile(txn, rc.addr, c.ProfileGivenName, c.ProfileFamilyName, rc.profileKey)
	if err != nil {
		return restoreFailure(id, KindDatabaseInsertionFailed, errors.Wrap(err, "profile"))
	}
	return nil
}

// mergeOrInsert returns the stored recipient for the frame address. An
// existing recipient is kept, with only its registration state updated.
func (r *ContactRestorer) mergeOrInsert(txn *lmdb.Txn, id RecipientID, rc restoredContact, l logrus.FieldLogger) (*recipient.Recipient, *FrameError) {
	existing, err := r.stores.Recipients.RecipientFor(txn, rc.addr)
	if err != nil {
		return nil, newFrameError(id, KindDatabaseReadFailed, errors.Wrap(err, "lookup recipient"))
	}

	if existing == nil {
		reg := recipient.Registered()
		if rc.reg != nil {
			reg = *rc.reg
		}
		nr := recipient.New(rc.addr, reg)
		if err := r.stores.Recipients.Insert(txn, nr); err != nil {
			return nil, newFrameError(id, KindDatabaseInsertionFailed, errors.Wrap(err, "insert recipient"))
		}
		metricRecipientsRestored.WithLabelValues("inserted").Inc()
		l.WithField("rowid", nr.RowID).Debug("Inserted recipient")
		return nr, nil
	}

	switch {
	case rc.reg == nil:
		// nothing to merge
	case rc.reg.IsRegistered() && !existing.IsRegistered():
		if err := r.stores.Recipients.MarkAsRegisteredAndSave(txn, existing); err != nil {
			return nil, newFrameError(id, KindDatabaseInsertionFailed, errors.Wrap(err, "mark registered"))
		}
	case !rc.reg.IsRegistered() && existing.IsRegistered():
		at, _ := rc.reg.UnregisteredAt()
		if err := r.stores.Recipients.MarkAsUnregisteredAndSave(txn, existing, at); err != nil {
			return nil, newFrameError(id, KindDatabaseInsertionFailed, errors.Wrap(err, "mark unregistered"))
		}
	}
	metricRecipientsRestored.WithLabelValues("merged").Inc()
	l.WithFields(logrus.Fields{
		"rowid":        existing.RowID,
		"registration": existing.Registration,
	}).Debug("Merged recipient")
	return existing, nil
}
