package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/lmdbenv"
	"github.com/PowerDNS/recipientbackup/recipient"
)

type indexEntry struct {
	dbi lmdb.DBI
	key []byte
}

// indexEntries returns an index entry per identifier in priority order
func (s *Store) indexEntries(a recipient.Address) []indexEntry {
	var entries []indexEntry
	if a.ACI != nil {
		entries = append(entries, indexEntry{s.recipientsByACI, a.ACI.Bytes()})
	}
	if a.PNI != nil {
		entries = append(entries, indexEntry{s.recipientsByPNI, a.PNI.Bytes()})
	}
	if a.E164 != nil {
		entries = append(entries, indexEntry{s.recipientsByE164, []byte(a.E164.String())})
	}
	return entries
}

// EnumerateAll calls f for every recipient in rowid order
func (s *Store) EnumerateAll(txn *lmdb.Txn, f func(r *recipient.Recipient) error) error {
	return lmdbenv.ForEach(txn, s.recipients, func(key, val []byte) error {
		r, err := loadRecipient(key, val)
		if err != nil {
			return err
		}
		return f(r)
	})
}

func loadRecipient(key, val []byte) (*recipient.Recipient, error) {
	id, err := parseRowIDKey(key)
	if err != nil {
		return nil, err
	}
	r, err := decodeRecipient(val)
	if err != nil {
		return nil, errors.Wrapf(err, "rowid %d", id)
	}
	r.RowID = id
	return r, nil
}

// Get loads a recipient by rowid. It returns nil if it does not exist.
func (s *Store) Get(txn *lmdb.Txn, id recipient.RowID) (*recipient.Recipient, error) {
	key := rowIDKey(id)
	val, err := getOptional(txn, s.recipients, key)
	if err != nil || val == nil {
		return nil, err
	}
	return loadRecipient(key, val)
}

// RecipientFor looks up the recipient by ACI, PNI and E164, in that order
func (s *Store) RecipientFor(txn *lmdb.Txn, addr recipient.Address) (*recipient.Recipient, error) {
	for _, e := range s.indexEntries(addr.Normalized()) {
		val, err := getOptional(txn, e.dbi, e.key)
		if err != nil {
			return nil, errors.Wrap(err, "index lookup")
		}
		if val == nil {
			continue
		}
		id, err := parseRowIDKey(val)
		if err != nil {
			return nil, errors.Wrap(err, "index value")
		}
		r, err := s.Get(txn, id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errors.Errorf("index points to missing rowid %d", id)
		}
		return r, nil
	}
	return nil, nil
}

// Insert stores a new recipient under the next free rowid. It fails with
// ErrAlreadyExists if any of its identifiers belongs to a stored recipient.
func (s *Store) Insert(txn *lmdb.Txn, r *recipient.Recipient) error {
	if r.RowID != 0 {
		return errors.Errorf("recipient already has rowid %d", r.RowID)
	}
	addr := r.Address.Normalized()
	if addr.IsEmpty() {
		return errors.New("recipient without identifiers")
	}
	entries := s.indexEntries(addr)
	for _, e := range entries {
		val, err := getOptional(txn, e.dbi, e.key)
		if err != nil {
			return errors.Wrap(err, "index lookup")
		}
		if val != nil {
			return errors.Wrapf(ErrAlreadyExists, "%s", addr)
		}
	}

	id, err := s.nextRowID(txn)
	if err != nil {
		return err
	}
	key := rowIDKey(id)
	r.Address = addr
	if err := txn.Put(s.recipients, key, encodeRecipient(r), 0); err != nil {
		return errors.Wrap(err, "put recipient")
	}
	for _, e := range entries {
		if err := txn.Put(e.dbi, e.key, key, 0); err != nil {
			return errors.Wrap(err, "put index")
		}
	}
	r.RowID = id
	return nil
}

func (s *Store) nextRowID(txn *lmdb.Txn) (recipient.RowID, error) {
	c, err := txn.OpenCursor(s.recipients)
	if err != nil {
		return 0, errors.Wrap(err, "open cursor")
	}
	defer c.Close()

	key, _, err := c.Get(nil, nil, lmdb.Last)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return 1, nil
		}
		return 0, errors.Wrap(err, "cursor last")
	}
	last, err := parseRowIDKey(key)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (s *Store) save(txn *lmdb.Txn, r *recipient.Recipient) error {
	if r.RowID == 0 {
		return ErrNotStored
	}
	if err := txn.Put(s.recipients, rowIDKey(r.RowID), encodeRecipient(r), 0); err != nil {
		return errors.Wrap(err, "put recipient")
	}
	return nil
}

func (s *Store) MarkAsRegisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient) error {
	r.Registration = recipient.Registered()
	return s.save(txn, r)
}

// MarkAsUnregisteredAndSave marks the recipient as unregistered at the given
// time, where 0 is an unknown time.
func (s *Store) MarkAsUnregisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient, at uint64) error {
	r.Registration = recipient.UnregisteredAt(at)
	return s.save(txn, r)
}
