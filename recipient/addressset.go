package recipient

import "github.com/samber/lo"

// AddressSet is a set of addresses where membership matches on any of the
// identifiers of an address.
type AddressSet struct {
	keys      map[string]struct{}
	addresses []Address
}

// NewAddressSet creates a set with the given addresses
func NewAddressSet(addrs ...Address) *AddressSet {
	s := &AddressSet{keys: make(map[string]struct{})}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add adds an address. Adding an address that is already a member is a
// no-op, but any new identifiers it carries become matchable.
func (s *AddressSet) Add(a Address) {
	a = a.Normalized()
	if a.IsEmpty() {
		return
	}
	keys := a.Keys()
	known := lo.ContainsBy(keys, func(k string) bool {
		_, exists := s.keys[k]
		return exists
	})
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	if !known {
		s.addresses = append(s.addresses, a)
	}
}

// Contains reports if any identifier of a is in the set
func (s *AddressSet) Contains(a Address) bool {
	if s == nil {
		return false
	}
	for _, k := range a.Normalized().Keys() {
		if _, exists := s.keys[k]; exists {
			return true
		}
	}
	return false
}

// Len returns the number of distinct addresses added
func (s *AddressSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.addresses)
}

// Addresses returns the addresses in insertion order
func (s *AddressSet) Addresses() []Address {
	if s == nil {
		return nil
	}
	return lo.Map(s.addresses, func(a Address, _ int) Address { return a })
}
