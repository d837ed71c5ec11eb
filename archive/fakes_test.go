package archive

import (
	"errors"

	"github.com/PowerDNS/lmdb-go/lmdb"

	"github.com/PowerDNS/recipientbackup/recipient"
)

var errFake = errors.New("fake store failure")

// memStores implements all stores in memory. The txn is ignored.
type memStores struct {
	recipients []*recipient.Recipient
	blocked    *recipient.AddressSet
	whitelist  *recipient.AddressSet
	profiles   map[string]*recipient.Profile
	hidden     map[recipient.RowID]bool // value is wasLocallyInitiated
	stories    map[recipient.ServiceID]*recipient.StoryContext

	// Calls counted for assertions
	blockCalls int
	inserts    int

	// Failure injection
	failInsert     bool
	failHide       bool
	failProfileFor string // address key
}

func newMemStores() *memStores {
	return &memStores{
		blocked:   recipient.NewAddressSet(),
		whitelist: recipient.NewAddressSet(),
		profiles:  make(map[string]*recipient.Profile),
		hidden:    make(map[recipient.RowID]bool),
		stories:   make(map[recipient.ServiceID]*recipient.StoryContext),
	}
}

func (m *memStores) Stores() Stores {
	return Stores{
		Blocks:     m,
		Profiles:   m,
		Hiding:     m,
		Recipients: m,
		Stories:    m,
	}
}

func (m *memStores) BlockedAddresses(txn *lmdb.Txn) (*recipient.AddressSet, error) {
	return recipient.NewAddressSet(m.blocked.Addresses()...), nil
}

func (m *memStores) AddBlockedAddress(txn *lmdb.Txn, addr recipient.Address) error {
	m.blockCalls++
	m.blocked.Add(addr)
	return nil
}

func (m *memStores) WhitelistedAddresses(txn *lmdb.Txn) ([]recipient.Address, error) {
	return m.whitelist.Addresses(), nil
}

func (m *memStores) AddToWhitelist(txn *lmdb.Txn, addr recipient.Address) error {
	m.whitelist.Add(addr)
	return nil
}

func (m *memStores) UserProfile(txn *lmdb.Txn, addr recipient.Address) (*recipient.Profile, error) {
	if m.failProfileFor != "" && addr.Key() == m.failProfileFor {
		return nil, errFake
	}
	return m.profiles[addr.Key()], nil
}

func (m *memStores) SetProfile(txn *lmdb.Txn, addr recipient.Address, givenName, familyName *string, profileKey []byte) error {
	m.profiles[addr.Key()] = &recipient.Profile{
		ProfileKey: profileKey,
		GivenName:  givenName,
		FamilyName: familyName,
	}
	return nil
}

func (m *memStores) IsHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient) (bool, error) {
	_, hidden := m.hidden[r.RowID]
	return hidden, nil
}

func (m *memStores) AddHiddenRecipient(txn *lmdb.Txn, r *recipient.Recipient, wasLocallyInitiated bool) error {
	if m.failHide {
		return errFake
	}
	if _, exists := m.hidden[r.RowID]; !exists {
		m.hidden[r.RowID] = wasLocallyInitiated
	}
	return nil
}

func (m *memStores) EnumerateAll(txn *lmdb.Txn, f func(r *recipient.Recipient) error) error {
	for _, r := range m.recipients {
		c := *r
		if err := f(&c); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStores) RecipientFor(txn *lmdb.Txn, addr recipient.Address) (*recipient.Recipient, error) {
	set := recipient.NewAddressSet(addr)
	for _, r := range m.recipients {
		if set.Contains(r.Address) {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStores) Insert(txn *lmdb.Txn, r *recipient.Recipient) error {
	if m.failInsert {
		return errFake
	}
	m.inserts++
	r.RowID = recipient.RowID(len(m.recipients) + 1)
	c := *r
	m.recipients = append(m.recipients, &c)
	return nil
}

func (m *memStores) save(r *recipient.Recipient) {
	for i, s := range m.recipients {
		if s.RowID == r.RowID {
			c := *r
			m.recipients[i] = &c
		}
	}
}

func (m *memStores) MarkAsRegisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient) error {
	r.Registration = recipient.Registered()
	m.save(r)
	return nil
}

func (m *memStores) MarkAsUnregisteredAndSave(txn *lmdb.Txn, r *recipient.Recipient, at uint64) error {
	r.Registration = recipient.UnregisteredAt(at)
	m.save(r)
	return nil
}

func (m *memStores) StoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error) {
	sc, exists := m.stories[aci]
	if !exists {
		return nil, nil
	}
	c := *sc
	return &c, nil
}

func (m *memStores) GetOrCreateStoryContext(txn *lmdb.Txn, aci recipient.ServiceID) (*recipient.StoryContext, error) {
	if _, exists := m.stories[aci]; !exists {
		m.stories[aci] = &recipient.StoryContext{ACI: aci}
	}
	return m.StoryContext(txn, aci)
}

func (m *memStores) UpdateStoryContext(txn *lmdb.Txn, sc *recipient.StoryContext, isHidden bool) error {
	sc.IsHidden = isHidden
	c := *sc
	m.stories[sc.ACI] = &c
	return nil
}

// add stores a recipient directly, bypassing the insert counter
func (m *memStores) add(r *recipient.Recipient) *recipient.Recipient {
	r.RowID = recipient.RowID(len(m.recipients) + 1)
	c := *r
	m.recipients = append(m.recipients, &c)
	return r
}
