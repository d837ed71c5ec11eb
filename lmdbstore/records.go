package lmdbstore

import (
	"encoding/binary"
	"fmt"

	"github.com/PowerDNS/recipientbackup/pbwire"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// Record field numbers. Address fields are shared by all records that embed
// an address.
const (
	fieldAddrACI  = 1
	fieldAddrPNI  = 2
	fieldAddrE164 = 3

	fieldRecipientRegKind = 4
	fieldRecipientRegAt   = 5

	fieldProfileKey        = 1
	fieldProfileGivenName  = 2
	fieldProfileFamilyName = 3

	fieldHiddenLocallyInitiated = 1

	fieldStoryHidden = 1
)

// Registration kinds as stored
const (
	regKindRegistered   = 0
	regKindUnregistered = 1
)

func rowIDKey(id recipient.RowID) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func parseRowIDKey(k []byte) (recipient.RowID, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("invalid rowid key length %d", len(k))
	}
	return recipient.RowID(binary.BigEndian.Uint64(k)), nil
}

func putAddress(b *pbwire.Buffer, a recipient.Address) {
	if a.ACI != nil {
		b.FieldBytes(fieldAddrACI, a.ACI.Bytes())
	}
	if a.PNI != nil {
		b.FieldBytes(fieldAddrPNI, a.PNI.Bytes())
	}
	if a.E164 != nil {
		b.FieldString(fieldAddrE164, a.E164.String())
	}
}

func encodeAddress(a recipient.Address) []byte {
	b := pbwire.NewBuffer(64)
	putAddress(b, a)
	return b.Bytes()
}

func decodeAddress(data []byte) (recipient.Address, error) {
	r, err := decodeRecipient(data)
	if err != nil {
		return recipient.Address{}, err
	}
	return r.Address, nil
}

func encodeRecipient(r *recipient.Recipient) []byte {
	b := pbwire.NewBuffer(64)
	putAddress(b, r.Address)
	if !r.IsRegistered() {
		b.FieldUInt64(fieldRecipientRegKind, regKindUnregistered)
		if ts, known := r.Registration.UnregisteredAt(); known {
			b.PutUInt64(fieldRecipientRegAt, ts)
		}
	}
	return b.Bytes()
}

// decodeRecipient decodes a recipient record, without the RowID
func decodeRecipient(data []byte) (*recipient.Recipient, error) {
	var (
		addr  recipient.Address
		kind  uint64
		regAt uint64
	)
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case fieldAddrACI, fieldAddrPNI:
			var (
				v  []byte
				id recipient.ServiceID
			)
			v, err = pbwire.GetBytes(d, tag, wireType)
			if err != nil {
				break
			}
			id, err = recipient.ServiceIDFromBytes(v)
			if tag == fieldAddrACI {
				addr.ACI = &id
			} else {
				addr.PNI = &id
			}
		case fieldAddrE164:
			var (
				v string
				e recipient.E164
			)
			v, err = pbwire.GetString(d, tag, wireType)
			if err != nil {
				break
			}
			e, err = recipient.ParseE164(v)
			addr.E164 = &e
		case fieldRecipientRegKind:
			kind, err = pbwire.GetUInt64(d, tag, wireType)
		case fieldRecipientRegAt:
			regAt, err = pbwire.GetUInt64(d, tag, wireType)
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return nil, fmt.Errorf("recipient record: %w", err)
		}
	}

	reg := recipient.Registered()
	if kind == regKindUnregistered {
		reg = recipient.UnregisteredAt(regAt)
	}
	return &recipient.Recipient{
		Address:      addr,
		Registration: reg,
	}, nil
}

func encodeProfile(p *recipient.Profile) []byte {
	b := pbwire.NewBuffer(64 + len(p.ProfileKey))
	b.PutBytes(fieldProfileKey, p.ProfileKey)
	if p.GivenName != nil {
		b.FieldString(fieldProfileGivenName, *p.GivenName)
	}
	if p.FamilyName != nil {
		b.FieldString(fieldProfileFamilyName, *p.FamilyName)
	}
	return b.Bytes()
}

func decodeProfile(data []byte) (*recipient.Profile, error) {
	p := new(recipient.Profile)
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		switch tag {
		case fieldProfileKey:
			p.ProfileKey, err = pbwire.GetBytesCopy(d, tag, wireType)
		case fieldProfileGivenName:
			var s string
			s, err = pbwire.GetString(d, tag, wireType)
			p.GivenName = &s
		case fieldProfileFamilyName:
			var s string
			s, err = pbwire.GetString(d, tag, wireType)
			p.FamilyName = &s
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return nil, fmt.Errorf("profile record: %w", err)
		}
	}
	return p, nil
}

// encodeFlag encodes a record with a single bool field. The field is always
// written, so that the value is never empty.
func encodeFlag(tag int, v bool) []byte {
	b := pbwire.NewBuffer(2)
	var n uint64
	if v {
		n = 1
	}
	b.FieldUInt64(tag, n)
	return b.Bytes()
}

func decodeFlag(data []byte, flagTag int) (bool, error) {
	var v bool
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return false, err
		}
		if tag == flagTag {
			v, err = pbwire.GetBool(d, tag, wireType)
		} else {
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return false, err
		}
	}
	return v, nil
}
