// Package lmdbstore implements the recipient stores on top of LMDB.
//
// Every concern has its own DBI:
//
//	recipients          rowid (8 bytes, big endian) -> recipient record
//	recipients_by_aci   aci (16 bytes) -> rowid
//	recipients_by_pni   pni (16 bytes) -> rowid
//	recipients_by_e164  e164 string -> rowid
//	blocked             address lookup key -> address record
//	whitelist           address lookup key -> address record
//	profiles            address lookup key -> profile record
//	hidden              rowid -> hidden record
//	story_contexts      aci (16 bytes) -> story record
//
// Addresses in the blocked, whitelist and profiles DBIs are stored under
// every lookup key they have, so that a lookup matches on any identifier.
// All methods operate within the transaction passed in and never commit.
package lmdbstore

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"

	"github.com/PowerDNS/recipientbackup/archive"
)

// DBI names
const (
	DBIRecipients       = "recipients"
	DBIRecipientsByACI  = "recipients_by_aci"
	DBIRecipientsByPNI  = "recipients_by_pni"
	DBIRecipientsByE164 = "recipients_by_e164"
	DBIBlocked          = "blocked"
	DBIWhitelist        = "whitelist"
	DBIProfiles         = "profiles"
	DBIHidden           = "hidden"
	DBIStoryContexts    = "story_contexts"
)

// DBINames lists all DBIs used by the Store
var DBINames = []string{
	DBIRecipients,
	DBIRecipientsByACI,
	DBIRecipientsByPNI,
	DBIRecipientsByE164,
	DBIBlocked,
	DBIWhitelist,
	DBIProfiles,
	DBIHidden,
	DBIStoryContexts,
}

var (
	ErrAlreadyExists = errors.New("recipient already exists")
	ErrNotStored     = errors.New("recipient not stored")
)

// Store implements all recipient stores
type Store struct {
	recipients       lmdb.DBI
	recipientsByACI  lmdb.DBI
	recipientsByPNI  lmdb.DBI
	recipientsByE164 lmdb.DBI
	blocked          lmdb.DBI
	whitelist        lmdb.DBI
	profiles         lmdb.DBI
	hidden           lmdb.DBI
	stories          lmdb.DBI
}

// Open opens the DBIs of the store and creates them if needed.
// The env must not be read-only, use OpenReadOnly in that case.
func Open(env *lmdb.Env) (*Store, error) {
	var s *Store
	err := env.Update(func(txn *lmdb.Txn) error {
		var err error
		s, err = openDBIs(txn, lmdb.Create)
		return err
	})
	return s, err
}

// OpenReadOnly opens the DBIs of an existing store. All DBIs must exist.
func OpenReadOnly(env *lmdb.Env) (*Store, error) {
	var s *Store
	err := env.View(func(txn *lmdb.Txn) error {
		var err error
		s, err = openDBIs(txn, 0)
		return err
	})
	return s, err
}

func openDBIs(txn *lmdb.Txn, flags uint) (*Store, error) {
	dbis := make(map[string]lmdb.DBI, len(DBINames))
	for _, name := range DBINames {
		dbi, err := txn.OpenDBI(name, flags)
		if err != nil {
			return nil, errors.Wrapf(err, "open dbi %s", name)
		}
		dbis[name] = dbi
	}
	return &Store{
		recipients:       dbis[DBIRecipients],
		recipientsByACI:  dbis[DBIRecipientsByACI],
		recipientsByPNI:  dbis[DBIRecipientsByPNI],
		recipientsByE164: dbis[DBIRecipientsByE164],
		blocked:          dbis[DBIBlocked],
		whitelist:        dbis[DBIWhitelist],
		profiles:         dbis[DBIProfiles],
		hidden:           dbis[DBIHidden],
		stories:          dbis[DBIStoryContexts],
	}, nil
}

var (
	_ archive.BlockList      = (*Store)(nil)
	_ archive.ProfileStore   = (*Store)(nil)
	_ archive.HidingStore    = (*Store)(nil)
	_ archive.RecipientStore = (*Store)(nil)
	_ archive.StoryStore     = (*Store)(nil)
)

// Stores returns the store as the collaborators of the archiver and restorer
func (s *Store) Stores() archive.Stores {
	return archive.Stores{
		Blocks:     s,
		Profiles:   s,
		Hiding:     s,
		Recipients: s,
		Stories:    s,
	}
}

// getOptional returns nil if the key does not exist
func getOptional(txn *lmdb.Txn, dbi lmdb.DBI, key []byte) ([]byte, error) {
	val, err := txn.Get(dbi, key)
	if err != nil {
		if lmdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// delOptional ignores keys that do not exist
func delOptional(txn *lmdb.Txn, dbi lmdb.DBI, key []byte) error {
	err := txn.Del(dbi, key, nil)
	if err != nil && !lmdb.IsNotFound(err) {
		return err
	}
	return nil
}
