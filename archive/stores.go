package archive

import (
	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/PowerDNS/recipientbackup/recipient"
)

// The stores below are the collaborators of the archiver and the restorer.
// All methods run inside the transaction passed by the caller. A read-only
// transaction is sufficient for archiving, restoring needs a write
// transaction.

// BlockList is the set of blocked addresses
type BlockList interface {
	BlockedAddresses(txn *lmdb.Txn) (*recipient.AddressSet, error)
	AddBlockedAddress(txn *lmdb.Txn, addr recipient.Address) error
}

// ProfileStore holds the profile whitelist and the profiles of recipients
type ProfileStore interface {
	WhitelistedAddresses(txn *lmdb.Txn) ([]recipient.Address, error)
	AddToWhitelist(txn *lmdb.Txn, addr recipient.Address) error
	// UserProfile returns nil if no profile is known for the address
	UserProfile(txn *lmdb.Txn, addr recipient.Address) (*recipient.Profile, error)
	// SetProfile overwrites the profile fields of the address
	SetProfile(txn *lmdb.Txn, addr recipient.Address, givenName, familyName *string, profileKey []byte) error
}

// HidingStore is the set of hidden recipients
type HidingStore interface {
	IsHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient) (bool, error)
	AddHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient, wasLocallyInitiated bool) error
}

// RecipientStore stores contact recipients
type RecipientStore interface {
	// EnumerateAll calls f for every recipient in a deterministic order.
	// Enumeration stops at the first error returned by f.
	EnumerateAll(txn *lmdb.Txn, f func(r *recipient.Recipient) error) error
	// RecipientFor returns the recipient matching any identifier of the
	// address, or nil if there is none.
	RecipientFor(txn *lmdb.Txn, addr recipient.Address) (*recipient.Recipient, error)
	// Insert stores a new recipient and sets its RowID
	Insert(txn *lmdb.Txn, r *recipient.Recipient) error
	MarkAsRegisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient) error
	MarkAsUnregisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient, at uint64) error
}

// StoryStore holds the story visibility per ACI
type StoryStore interface {
	// StoryContext returns nil if no context exists for the ACI
	StoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error)
	GetOrCreateStoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error)
	UpdateStoryContext(txn *lmdb.Txn, sc *recipient.StoryContext, isHidden bool) error
}

// Stores bundles all collaborators
type Stores struct {
	Blocks     BlockList
	Profiles   ProfileStore
	Hiding     HidingStore
	Recipients RecipientStore
	Stories    StoryStore
}
