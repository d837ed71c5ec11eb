package recipient

import "fmt"

type registrationKind uint8

const (
	kindRegistered registrationKind = iota
	kindUnregisteredAt
	kindUnregisteredUnknownTime
)

// Registration is the registration state of a recipient: registered,
// unregistered since a known time, or unregistered at an unknown time.
// The zero value is Registered.
type Registration struct {
	kind registrationKind
	at   uint64
}

func Registered() Registration {
	return Registration{kind: kindRegistered}
}

// UnregisteredAt returns an unregistered state with a known timestamp.
// A zero timestamp is taken as unknown.
func UnregisteredAt(ts uint64) Registration {
	if ts == 0 {
		return UnregisteredUnknownTime()
	}
	return Registration{kind: kindUnregisteredAt, at: ts}
}

func UnregisteredUnknownTime() Registration {
	return Registration{kind: kindUnregisteredUnknownTime}
}

func (r Registration) IsRegistered() bool {
	return r.kind == kindRegistered
}

// UnregisteredAt returns the unregistration timestamp, if known.
func (r Registration) UnregisteredAt() (ts uint64, known bool) {
	if r.kind != kindUnregisteredAt {
		return 0, false
	}
	return r.at, true
}

func (r Registration) String() string {
	switch r.kind {
	case kindRegistered:
		return "registered"
	case kindUnregisteredAt:
		return fmt.Sprintf("unregistered@%d", r.at)
	default:
		return "unregistered@unknown"
	}
}
