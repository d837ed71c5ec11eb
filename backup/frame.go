package backup

import (
	"fmt"

	"github.com/PowerDNS/recipientbackup/pbwire"
)

// Protobuf field numbers
const (
	FieldFrameRecipient = 2

	FieldRecipientID      = 1
	FieldRecipientContact = 2
)

// Frame is one record of the backup stream after the BackupInfo.
// Recipient is nil for frame items we do not handle, in which case ItemTag
// holds the field number of the item that was skipped.
type Frame struct {
	Recipient *Recipient
	ItemTag   int
}

// Recipient is the recipient item of a frame.
// Contact is nil for other destinations, with DestinationTag set to the
// field number that was skipped.
type Recipient struct {
	ID             uint64
	Contact        *Contact
	DestinationTag int
}

// NewContactFrame wraps a contact in a recipient frame
func NewContactFrame(id uint64, c *Contact) *Frame {
	return &Frame{
		Recipient: &Recipient{ID: id, Contact: c},
	}
}

func (f *Frame) Marshal() ([]byte, error) {
	if f.Recipient == nil {
		return nil, fmt.Errorf("frame: no supported item set")
	}
	msg, err := f.Recipient.Marshal()
	if err != nil {
		return nil, err
	}
	b := pbwire.NewBuffer(len(msg) + 10)
	b.FieldBytes(FieldFrameRecipient, msg)
	return b.Bytes(), nil
}

func (f *Frame) Unmarshal(data []byte) error {
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldFrameRecipient:
			msg, err := pbwire.GetBytes(d, tag, wireType)
			if err != nil {
				return err
			}
			r := new(Recipient)
			if err := r.Unmarshal(msg); err != nil {
				return fmt.Errorf("frame recipient: %w", err)
			}
			f.Recipient = r
			f.ItemTag = tag
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
			if f.Recipient == nil {
				f.ItemTag = tag
			}
		}
	}
	return nil
}

func (r *Recipient) Marshal() ([]byte, error) {
	if r.ID == 0 {
		return nil, fmt.Errorf("recipient: id must not be zero")
	}
	if r.Contact == nil {
		return nil, fmt.Errorf("recipient %d: no supported destination set", r.ID)
	}
	contact, err := r.Contact.Marshal()
	if err != nil {
		return nil, fmt.Errorf("recipient %d: %w", r.ID, err)
	}
	b := pbwire.NewBuffer(len(contact) + 20)
	b.PutUInt64(FieldRecipientID, r.ID)
	b.FieldBytes(FieldRecipientContact, contact)
	return b.Bytes(), nil
}

func (r *Recipient) Unmarshal(data []byte) error {
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldRecipientID:
			r.ID, err = pbwire.GetUInt64(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldRecipientContact:
			msg, err := pbwire.GetBytes(d, tag, wireType)
			if err != nil {
				return err
			}
			c := new(Contact)
			if err := c.Unmarshal(msg); err != nil {
				return fmt.Errorf("contact: %w", err)
			}
			r.Contact = c
			r.DestinationTag = tag
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
			if r.Contact == nil {
				r.DestinationTag = tag
			}
		}
	}
	return nil
}
