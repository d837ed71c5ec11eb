package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/recipient"
)

func (s *Store) IsHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient) (bool, error) {
	if r.RowID == 0 {
		return false, nil
	}
	val, err := getOptional(txn, s.hidden, rowIDKey(r.RowID))
	if err != nil {
		return false, errors.Wrap(err, "get hidden")
	}
	return val != nil, nil
}

// WasLocallyHidden reports if the recipient was hidden on this device. It
// returns false for recipients that are not hidden.
func (s *Store) WasLocallyHidden(txn *lmdb.Txn, r *recipient.Recipient) (bool, error) {
	val, err := getOptional(txn, s.hidden, rowIDKey(r.RowID))
	if err != nil || val == nil {
		return false, err
	}
	return decodeFlag(val, fieldHiddenLocallyInitiated)
}

// AddHiddenRecipient hides a stored recipient. Hiding a recipient that is
// already hidden keeps the original record.
func (s *Store) AddHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient, wasLocallyInitiated bool) error {
	if r.RowID == 0 {
		return ErrNotStored
	}
	err := txn.Put(s.hidden, rowIDKey(r.RowID), encodeFlag(fieldHiddenLocallyInitiated, wasLocallyInitiated), lmdb.NoOverwrite)
	if err != nil {
		if lmdb.IsErrno(err, lmdb.KeyExist) {
			return nil
		}
		return errors.Wrap(err, "put hidden")
	}
	return nil
}
