// Package recipient defines the contact recipient model shared by the
// archiver, the restorer and the stores.
package recipient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ServiceID is a stable account identifier. The primary id of an account is
// its ACI, the secondary id its PNI.
type ServiceID struct {
	uuid.UUID
}

// ServiceIDFromBytes parses the 16 byte wire representation
func ServiceIDFromBytes(b []byte) (ServiceID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return ServiceID{}, fmt.Errorf("service id: %w", err)
	}
	return ServiceID{u}, nil
}

// ParseServiceID parses the string representation of a service id
func ParseServiceID(s string) (ServiceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ServiceID{}, fmt.Errorf("service id: %w", err)
	}
	return ServiceID{u}, nil
}

// Bytes returns the 16 byte wire representation
func (s ServiceID) Bytes() []byte {
	b := s.UUID
	return b[:]
}

// maxE164Digits is the E.164 limit of 15 digits
const maxE164Digits = 15

// E164 is a phone number in E.164 format, like "+15551234567"
type E164 string

// ParseE164 validates a phone number string
func ParseE164(s string) (E164, error) {
	digits, ok := strings.CutPrefix(s, "+")
	if !ok {
		return "", fmt.Errorf("e164 %q: missing '+' prefix", s)
	}
	if len(digits) == 0 || len(digits) > maxE164Digits {
		return "", fmt.Errorf("e164 %q: invalid length", s)
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("e164 %q: invalid character %q", s, ch)
		}
	}
	if digits[0] == '0' {
		return "", fmt.Errorf("e164 %q: leading zero", s)
	}
	return E164(s), nil
}

// E164FromUint64 converts the numeric wire representation
func E164FromUint64(v uint64) (E164, error) {
	if v == 0 {
		return "", fmt.Errorf("e164: zero value")
	}
	return ParseE164("+" + strconv.FormatUint(v, 10))
}

// Uint64 returns the numeric wire representation
func (e E164) Uint64() uint64 {
	v, err := strconv.ParseUint(strings.TrimPrefix(string(e), "+"), 10, 64)
	if err != nil {
		return 0 // only reachable for values not created by ParseE164
	}
	return v
}

func (e E164) String() string {
	return string(e)
}

// Address combines the identifiers a recipient can be known by.
// Any of them can be absent, but a recipient with none of them cannot be
// represented in a backup.
type Address struct {
	ACI  *ServiceID
	PNI  *ServiceID
	E164 *E164
}

// NewAddress is a convenience constructor that takes zero values as absent.
func NewAddress(aci, pni ServiceID, e164 E164) Address {
	var a Address
	if aci.UUID != uuid.Nil {
		a.ACI = &aci
	}
	if pni.UUID != uuid.Nil {
		a.PNI = &pni
	}
	if e164 != "" {
		a.E164 = &e164
	}
	return a
}

// IsEmpty reports if none of the identifiers is present
func (a Address) IsEmpty() bool {
	return a.ACI == nil && a.PNI == nil && a.E164 == nil
}

// Normalized drops identifiers that are present but hold a zero value.
func (a Address) Normalized() Address {
	var n Address
	if a.ACI != nil && a.ACI.UUID != uuid.Nil {
		aci := *a.ACI
		n.ACI = &aci
	}
	if a.PNI != nil && a.PNI.UUID != uuid.Nil {
		pni := *a.PNI
		n.PNI = &pni
	}
	if a.E164 != nil && *a.E164 != "" {
		e := *a.E164
		n.E164 = &e
	}
	return n
}

// Keys returns a lookup key per present identifier, ordered by priority.
func (a Address) Keys() []string {
	keys := make([]string, 0, 3)
	if a.ACI != nil {
		keys = append(keys, "aci:"+a.ACI.String())
	}
	if a.PNI != nil {
		keys = append(keys, "pni:"+a.PNI.String())
	}
	if a.E164 != nil {
		keys = append(keys, "e164:"+a.E164.String())
	}
	return keys
}

// Key returns the highest priority lookup key, or "" for an empty address
func (a Address) Key() string {
	keys := a.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// String returns all identifiers, which makes it usable as map key for the
// full address.
func (a Address) String() string {
	return strings.Join(a.Keys(), " ")
}

// Equal compares all identifiers
func (a Address) Equal(o Address) bool {
	return a.String() == o.String()
}

// Merge returns a copy of a with identifiers that are absent in a filled in from o
func (a Address) Merge(o Address) Address {
	m := a.Normalized()
	o = o.Normalized()
	if m.ACI == nil {
		m.ACI = o.ACI
	}
	if m.PNI == nil {
		m.PNI = o.PNI
	}
	if m.E164 == nil {
		m.E164 = o.E164
	}
	return m
}
