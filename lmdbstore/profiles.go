package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/recipient"
)

// UserProfile returns the profile stored under the first matching lookup key
func (s *Store) UserProfile(txn *lmdb.Txn, addr recipient.Address) (*recipient.Profile, error) {
	for _, k := range addr.Normalized().Keys() {
		val, err := getOptional(txn, s.profiles, []byte(k))
		if err != nil {
			return nil, errors.Wrap(err, "get profile")
		}
		if val == nil {
			continue
		}
		p, err := decodeProfile(val)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		return p, nil
	}
	return nil, nil
}

// SetProfile replaces the profile of the address. Clearing all fields
// removes the profile.
func (s *Store) SetProfile(txn *lmdb.Txn, addr recipient.Address, givenName, familyName *string, profileKey []byte) error {
	keys := addr.Normalized().Keys()
	if len(keys) == 0 {
		return errors.New("address without identifiers")
	}
	if givenName == nil && familyName == nil && len(profileKey) == 0 {
		for _, k := range keys {
			if err := delOptional(txn, s.profiles, []byte(k)); err != nil {
				return errors.Wrap(err, "delete profile")
			}
		}
		return nil
	}

	val := encodeProfile(&recipient.Profile{
		ProfileKey: profileKey,
		GivenName:  givenName,
		FamilyName: familyName,
	})
	for _, k := range keys {
		if err := txn.Put(s.profiles, []byte(k), val, 0); err != nil {
			return errors.Wrap(err, "put profile")
		}
	}
	return nil
}
