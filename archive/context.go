package archive

import (
	"fmt"

	"github.com/PowerDNS/recipientbackup/recipient"
)

// RecipientID is the id of a recipient within one backup
type RecipientID uint64

// FirstRecipientID is the first id assigned. 0 is the protobuf unset value.
const FirstRecipientID RecipientID = 1

// ArchivingContext assigns recipient ids during an archive pass
type ArchivingContext struct {
	next  RecipientID
	ids   map[string]RecipientID
	addrs map[RecipientID]recipient.Address
}

func NewArchivingContext() *ArchivingContext {
	return &ArchivingContext{
		next:  FirstRecipientID,
		ids:   make(map[string]RecipientID),
		addrs: make(map[RecipientID]recipient.Address),
	}
}

// AssignRecipientID returns the id for the address, allocating the next one
// if the address was not seen before in this pass.
func (c *ArchivingContext) AssignRecipientID(addr recipient.Address) RecipientID {
	key := addr.String()
	if id, exists := c.ids[key]; exists {
		return id
	}
	id := c.next
	c.next++
	c.ids[key] = id
	c.addrs[id] = addr
	return id
}

// RecipientID returns the id assigned to an address, if any
func (c *ArchivingContext) RecipientID(addr recipient.Address) (RecipientID, bool) {
	id, exists := c.ids[addr.String()]
	return id, exists
}

// Address returns the address an id was assigned to
func (c *ArchivingContext) Address(id RecipientID) (recipient.Address, error) {
	addr, exists := c.addrs[id]
	if !exists {
		return recipient.Address{}, fmt.Errorf("%w: %d", ErrUnknownRecipientID, id)
	}
	return addr, nil
}

// Len returns the number of assigned ids
func (c *ArchivingContext) Len() int {
	return len(c.ids)
}

// RestoringContext records the address of every recipient frame restored
// during a restore pass.
type RestoringContext struct {
	addrs map[RecipientID]recipient.Address
}

func NewRestoringContext() *RestoringContext {
	return &RestoringContext{
		addrs: make(map[RecipientID]recipient.Address),
	}
}

// Set binds a recipient id to an address
func (c *RestoringContext) Set(id RecipientID, addr recipient.Address) {
	c.addrs[id] = addr
}

// Lookup returns the address bound to an id. Frames that reference a
// recipient must be restored after the frame of that recipient.
func (c *RestoringContext) Lookup(id RecipientID) (recipient.Address, error) {
	addr, exists := c.addrs[id]
	if !exists {
		return recipient.Address{}, fmt.Errorf("%w: %d", ErrUnknownRecipientID, id)
	}
	return addr, nil
}

// Len returns the number of bound ids
func (c *RestoringContext) Len() int {
	return len(c.addrs)
}
