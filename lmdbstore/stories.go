package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/recipient"
)

func (s *Store) StoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error) {
	val, err := getOptional(txn, s.stories, aci.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "get story context")
	}
	if val == nil {
		return nil, nil
	}
	hidden, err := decodeFlag(val, fieldStoryHidden)
	if err != nil {
		return nil, errors.Wrapf(err, "story context %s", aci)
	}
	return &recipient.StoryContext{ACI: aci, IsHidden: hidden}, nil
}

// GetOrCreateStoryContext returns the story context, creating a visible one
// if none exists.
func (s *Store) GetOrCreateStoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error) {
	sc, err := s.StoryContext(txn, aci)
	if err != nil || sc != nil {
		return sc, err
	}
	sc = &recipient.StoryContext{ACI: aci}
	if err := txn.Put(s.stories, aci.Bytes(), encodeFlag(fieldStoryHidden, false), 0); err != nil {
		return nil, errors.Wrap(err, "put story context")
	}
	return sc, nil
}

func (s *Store) UpdateStoryContext(txn *lmdb.Txn, sc *recipient.StoryContext, isHidden bool) error {
	if err := txn.Put(s.stories, sc.ACI.Bytes(), encodeFlag(fieldStoryHidden, isHidden), 0); err != nil {
		return errors.Wrap(err, "put story context")
	}
	sc.IsHidden = isHidden
	return nil
}
