package meal

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlotStatus is the closed set of states a remote tab can be in.
type SlotStatus string

const (
	StatusAvailable   SlotStatus = "available"
	StatusOrdered     SlotStatus = "ordered"
	StatusUnavailable SlotStatus = "unavailable"
	StatusUnknown     SlotStatus = "unknown"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOrdered, StatusUnavailable, StatusUnknown:
		return true
	}
	return false
}

// Session is an authenticated handle on the remote platform. It is passed
// explicitly to every catalog call; nothing holds one implicitly.
type Session struct {
	Account  string
	Token    string
	IssuedAt time.Time
}

func (s Session) Valid() bool { return s.Account != "" && s.Token != "" }

// Slot is one bookable meal window ("tab") as reported by the remote catalog.
type Slot struct {
	ID         string
	Label      string
	TargetTime time.Time
	// Date is the order date the slot belongs to, at UTC midnight.
	Date      time.Time
	Status    SlotStatus
	RawStatus string
	// AddressID is the first delivery address the remote offers for the tab.
	AddressID string
	// OrderedDish is the dish name of an existing order, when the remote
	// reports one.
	OrderedDish string
}

type Dish struct {
	ID         string
	Name       string
	Price      *decimal.Decimal
	Restaurant string
}

type Receipt struct {
	OrderID string
	Status  string
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// SlotSnapshot is the persisted view of a slot, keyed by (user, slot, date).
type SlotSnapshot struct {
	UserID      string
	SlotID      string
	OrderDate   time.Time
	Label       string
	TargetTime  time.Time
	Status      SlotStatus
	AddressID   string
	LastUpdated time.Time
}

func (s SlotSnapshot) Slot() Slot {
	return Slot{
		ID:         s.SlotID,
		Label:      s.Label,
		TargetTime: s.TargetTime,
		Date:       s.OrderDate,
		Status:     s.Status,
		RawStatus:  string(s.Status),
		AddressID:  s.AddressID,
	}
}

// OrderOutcome is one ledger row, keyed by (user, date, slot label).
type OrderOutcome struct {
	UserID     string
	OrderDate  time.Time
	SlotLabel  string
	DishName   string
	Success    bool
	Error      *string
	RecordedAt time.Time
}
