package recipient

// RowID identifies a stored recipient. It is assigned by the store on insert
// and is 0 for a recipient that was not stored yet.
type RowID uint64

// Recipient is a contact recipient
type Recipient struct {
	RowID        RowID
	Address      Address
	Registration Registration
}

// New creates an unsaved recipient
func New(addr Address, reg Registration) *Recipient {
	return &Recipient{
		Address:      addr.Normalized(),
		Registration: reg,
	}
}

// IsRegistered is a shortcut for r.Registration.IsRegistered()
func (r *Recipient) IsRegistered() bool {
	return r.Registration.IsRegistered()
}

// Profile holds the profile data of a recipient
type Profile struct {
	ProfileKey []byte
	GivenName  *string
	FamilyName *string
}

// StoryContext holds the story visibility of a recipient, keyed by ACI
type StoryContext struct {
	ACI      ServiceID
	IsHidden bool
}
