package meal

import (
	"fmt"
	"math/rand/v2"
)

type DecisionKind int

const (
	DecisionAlreadyOrdered DecisionKind = iota
	DecisionUnavailable
	DecisionNoMatchingDish
	DecisionSelectDish
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAlreadyOrdered:
		return "already_ordered"
	case DecisionUnavailable:
		return "unavailable"
	case DecisionNoMatchingDish:
		return "no_matching_dish"
	case DecisionSelectDish:
		return "select_dish"
	}
	return fmt.Sprintf("decision(%d)", int(k))
}

// Decision is what the policy wants done with one slot. Reason is set for
// Unavailable, Dish for SelectDish.
type Decision struct {
	Kind   DecisionKind
	Reason string
	Dish   Dish
}

// Policy picks a dish for a slot. Intn defaults to math/rand/v2.
type Policy struct {
	Intn func(n int) int
}

// NeedsDishes reports whether Decide can only be answered with the slot's
// dishes. Settled slots never cost a dish lookup.
func NeedsDishes(slot Slot) bool { return slot.Status == StatusAvailable }

// Decide is pure: no I/O, no mutation of its arguments.
//
// When several dishes match the keyword one is chosen uniformly at random;
// any matching dish is an acceptable choice.
func (p Policy) Decide(slot Slot, dishes []Dish, keyword string) Decision {
	switch slot.Status {
	case StatusOrdered:
		return Decision{Kind: DecisionAlreadyOrdered}
	case StatusAvailable:
	default:
		reason := fmt.Sprintf("status %s", slot.Status)
		if slot.RawStatus != "" && slot.RawStatus != string(slot.Status) {
			reason = fmt.Sprintf("status %s (%s)", slot.Status, slot.RawStatus)
		}
		return Decision{Kind: DecisionUnavailable, Reason: reason}
	}

	matching := MatchingDishes(dishes, keyword)
	if len(matching) == 0 {
		return Decision{Kind: DecisionNoMatchingDish}
	}
	pick := 0
	if len(matching) > 1 {
		pick = p.intn(len(matching))
	}
	return Decision{Kind: DecisionSelectDish, Dish: matching[pick]}
}

func (p Policy) intn(n int) int {
	if p.Intn != nil {
		return p.Intn(n)
	}
	return rand.IntN(n)
}

// MatchingDishes keeps dishes whose name contains keyword, in input order.
func MatchingDishes(dishes []Dish, keyword string) []Dish {
	var out []Dish
	for _, d := range dishes {
		if ContainsKeyword(d.Name, keyword) {
			out = append(out, d)
		}
	}
	return out
}
