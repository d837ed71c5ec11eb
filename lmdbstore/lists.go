package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/lmdbenv"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// readAddressSet reads a DBI that stores addresses under every lookup key
func readAddressSet(txn *lmdb.Txn, dbi lmdb.DBI) (*recipient.AddressSet, error) {
	set := recipient.NewAddressSet()
	err := lmdbenv.ForEach(txn, dbi, func(key, val []byte) error {
		a, err := decodeAddress(val)
		if err != nil {
			return errors.Wrapf(err, "key %q", key)
		}
		set.Add(a)
		return nil
	})
	return set, err
}

// addAddress stores the address under all of its lookup keys. Identifiers
// already stored for a matching address are merged in.
func addAddress(txn *lmdb.Txn, dbi lmdb.DBI, addr recipient.Address) error {
	addr = addr.Normalized()
	if addr.IsEmpty() {
		return errors.New("address without identifiers")
	}
	for _, k := range addr.Keys() {
		val, err := getOptional(txn, dbi, []byte(k))
		if err != nil {
			return err
		}
		if val == nil {
			continue
		}
		existing, err := decodeAddress(val)
		if err != nil {
			return errors.Wrapf(err, "key %q", k)
		}
		addr = addr.Merge(existing)
	}
	val := encodeAddress(addr)
	for _, k := range addr.Keys() {
		if err := txn.Put(dbi, []byte(k), val, 0); err != nil {
			return errors.Wrap(err, "put address")
		}
	}
	return nil
}

func (s *Store) BlockedAddresses(txn *lmdb.Txn) (*recipient.AddressSet, error) {
	return readAddressSet(txn, s.blocked)
}

func (s *Store) AddBlockedAddress(txn *lmdb.Txn, addr recipient.Address) error {
	return errors.Wrap(addAddress(txn, s.blocked, addr), "block")
}

// WhitelistedAddresses returns all addresses with profile sharing enabled
func (s *Store) WhitelistedAddresses(txn *lmdb.Txn) ([]recipient.Address, error) {
	set, err := readAddressSet(txn, s.whitelist)
	if err != nil {
		return nil, err
	}
	return set.Addresses(), nil
}

func (s *Store) AddToWhitelist(txn *lmdb.Txn, addr recipient.Address) error {
	return errors.Wrap(addAddress(txn, s.whitelist, addr), "whitelist")
}
