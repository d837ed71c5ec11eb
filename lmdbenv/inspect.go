package lmdbenv

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
)

type KV struct {
	Key, Val []byte
}

// ForEach calls f for every entry of the DBI in key order. Iteration stops
// at the first error returned by f.
// The key and value are only valid until the next call.
func ForEach(txn *lmdb.Txn, dbi lmdb.DBI, f func(key, val []byte) error) error {
	c, err := txn.OpenCursor(dbi)
	if err != nil {
		return errors.Wrap(err, "open cursor")
	}
	defer c.Close()

	var flag uint = lmdb.First
	for {
		key, val, err := c.Get(nil, nil, flag)
		if err != nil {
			if lmdb.IsNotFound(err) {
				return nil // done
			}
			return errors.Wrap(err, "cursor next")
		}
		flag = lmdb.Next
		if err := f(key, val); err != nil {
			return err
		}
	}
}

// ReadDBI reads all values in a DBI and returns them as a slice.
// This is useful for tests and dumps.
func ReadDBI(txn *lmdb.Txn, dbi lmdb.DBI) ([]KV, error) {
	var entries []KV
	err := ForEach(txn, dbi, func(key, val []byte) error {
		entries = append(entries, KV{
			Key: append([]byte(nil), key...),
			Val: append([]byte(nil), val...),
		})
		return nil
	})
	return entries, err
}

// ReadDBINames reads all DBI names from the root database
func ReadDBINames(txn *lmdb.Txn) ([]string, error) {
	rootDBI, err := txn.OpenRoot(0)
	if err != nil {
		return nil, err
	}
	kvs, err := ReadDBI(txn, rootDBI)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, item := range kvs {
		names = append(names, string(item.Key))
	}
	return names, nil
}

// DBIExists checks if a named DBI exists
func DBIExists(txn *lmdb.Txn, dbiName string) (bool, error) {
	_, err := txn.OpenDBI(dbiName, 0)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsEmpty checks if a database is empty
func IsEmpty(txn *lmdb.Txn, dbi lmdb.DBI) (bool, error) {
	c, err := txn.OpenCursor(dbi)
	if err != nil {
		return false, errors.Wrap(err, "open cursor")
	}
	defer c.Close()

	_, _, err = c.Get(nil, nil, lmdb.First)
	if err == nil {
		return false, nil
	}
	if !lmdb.IsNotFound(err) {
		return false, errors.Wrap(err, "get")
	}
	return true, nil
}
