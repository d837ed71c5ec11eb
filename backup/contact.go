package backup

import (
	"fmt"

	"github.com/CrowdStrike/csproto"
	"github.com/PowerDNS/recipientbackup/pbwire"
)

// Protobuf field numbers
const (
	FieldContactACI                   = 1
	FieldContactPNI                   = 2
	FieldContactUsername              = 3
	FieldContactE164                  = 4
	FieldContactBlocked               = 5
	FieldContactHidden                = 6
	FieldContactRegistered            = 7
	FieldContactUnregisteredTimestamp = 8
	FieldContactProfileKey            = 9
	FieldContactProfileSharing        = 10
	FieldContactProfileGivenName      = 11
	FieldContactProfileFamilyName     = 12
	FieldContactHideStory             = 13
)

const (
	ServiceIDSize  = 16
	ProfileKeySize = 32
)

// Registered is the registration enum of a contact
type Registered uint32

const (
	RegisteredUnknown Registered = iota
	RegisteredRegistered
	RegisteredNotRegistered
)

func (r Registered) String() string {
	switch r {
	case RegisteredUnknown:
		return "UNKNOWN"
	case RegisteredRegistered:
		return "REGISTERED"
	case RegisteredNotRegistered:
		return "NOT_REGISTERED"
	default:
		return fmt.Sprintf("Registered(%d)", uint32(r))
	}
}

// Contact is the contact variant of a recipient frame.
// Nil pointers and nil slices are absent optional fields.
// UnregisteredTimestamp is only meaningful with RegisteredNotRegistered.
type Contact struct {
	ACI                   []byte
	PNI                   []byte
	Username              *string // not archived or restored
	E164                  *uint64
	Blocked               bool
	Hidden                bool
	Registered            Registered
	UnregisteredTimestamp uint64
	ProfileKey            []byte
	ProfileSharing        bool
	ProfileGivenName      *string
	ProfileFamilyName     *string
	HideStory             bool
}

// HasIdentity reports if at least one of ACI, PNI and E164 is present
func (c *Contact) HasIdentity() bool {
	return c.ACI != nil || c.PNI != nil || c.E164 != nil
}

// Validate checks for field values that cannot be built into a valid frame
func (c *Contact) Validate() error {
	if c.ACI != nil && len(c.ACI) != ServiceIDSize {
		return fmt.Errorf("contact: aci must be %d bytes, got %d", ServiceIDSize, len(c.ACI))
	}
	if c.PNI != nil && len(c.PNI) != ServiceIDSize {
		return fmt.Errorf("contact: pni must be %d bytes, got %d", ServiceIDSize, len(c.PNI))
	}
	if c.E164 != nil && *c.E164 == 0 {
		return fmt.Errorf("contact: e164 must not be zero")
	}
	if c.ProfileKey != nil && len(c.ProfileKey) != ProfileKeySize {
		return fmt.Errorf("contact: profile key must be %d bytes, got %d", ProfileKeySize, len(c.ProfileKey))
	}
	if c.Registered > RegisteredNotRegistered {
		return fmt.Errorf("contact: invalid registered value %d", uint32(c.Registered))
	}
	if c.Registered != RegisteredNotRegistered && c.UnregisteredTimestamp != 0 {
		return fmt.Errorf("contact: unregistered timestamp set for %s contact", c.Registered)
	}
	return nil
}

// Marshal validates and encodes the contact
func (c *Contact) Marshal() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b := pbwire.NewBuffer(c.sizeEstimate())
	if c.ACI != nil {
		b.FieldBytes(FieldContactACI, c.ACI)
	}
	if c.PNI != nil {
		b.FieldBytes(FieldContactPNI, c.PNI)
	}
	if c.Username != nil {
		b.FieldString(FieldContactUsername, *c.Username)
	}
	if c.E164 != nil {
		b.FieldUInt64(FieldContactE164, *c.E164)
	}
	b.PutBool(FieldContactBlocked, c.Blocked)
	b.PutBool(FieldContactHidden, c.Hidden)
	b.PutUInt64(FieldContactRegistered, uint64(c.Registered))
	b.PutUInt64(FieldContactUnregisteredTimestamp, c.UnregisteredTimestamp)
	if c.ProfileKey != nil {
		b.FieldBytes(FieldContactProfileKey, c.ProfileKey)
	}
	b.PutBool(FieldContactProfileSharing, c.ProfileSharing)
	if c.ProfileGivenName != nil {
		b.FieldString(FieldContactProfileGivenName, *c.ProfileGivenName)
	}
	if c.ProfileFamilyName != nil {
		b.FieldString(FieldContactProfileFamilyName, *c.ProfileFamilyName)
	}
	b.PutBool(FieldContactHideStory, c.HideStory)
	return b.Bytes(), nil
}

// Make a safe estimate of the buffer size needed, not accurate.
func (c *Contact) sizeEstimate() int {
	n := 100 // tags, bools and varints
	n += len(c.ACI) + len(c.PNI) + len(c.ProfileKey)
	for _, s := range []*string{c.Username, c.ProfileGivenName, c.ProfileFamilyName} {
		if s != nil {
			n += len(*s) + 10
		}
	}
	return n
}

func (c *Contact) Unmarshal(data []byte) error {
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldContactACI:
			c.ACI, err = pbwire.GetBytesCopy(d, tag, wireType)
		case FieldContactPNI:
			c.PNI, err = pbwire.GetBytesCopy(d, tag, wireType)
		case FieldContactUsername:
			c.Username, err = getOptionalString(d, tag, wireType)
		case FieldContactE164:
			var v uint64
			v, err = pbwire.GetUInt64(d, tag, wireType)
			c.E164 = &v
		case FieldContactBlocked:
			c.Blocked, err = pbwire.GetBool(d, tag, wireType)
		case FieldContactHidden:
			c.Hidden, err = pbwire.GetBool(d, tag, wireType)
		case FieldContactRegistered:
			var v uint32
			v, err = pbwire.GetUInt32(d, tag, wireType)
			c.Registered = Registered(v)
		case FieldContactUnregisteredTimestamp:
			c.UnregisteredTimestamp, err = pbwire.GetUInt64(d, tag, wireType)
		case FieldContactProfileKey:
			c.ProfileKey, err = pbwire.GetBytesCopy(d, tag, wireType)
		case FieldContactProfileSharing:
			c.ProfileSharing, err = pbwire.GetBool(d, tag, wireType)
		case FieldContactProfileGivenName:
			c.ProfileGivenName, err = getOptionalString(d, tag, wireType)
		case FieldContactProfileFamilyName:
			c.ProfileFamilyName, err = getOptionalString(d, tag, wireType)
		case FieldContactHideStory:
			c.HideStory, err = pbwire.GetBool(d, tag, wireType)
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func getOptionalString(d *csproto.Decoder, tag int, wireType csproto.WireType) (*string, error) {
	s, err := pbwire.GetString(d, tag, wireType)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
