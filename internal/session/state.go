// Package session tracks the single pending multi-step dialogue per user.
package session

// Kind tags which multi-step flow a user is in.
type Kind int

const (
	KindNone Kind = iota
	KindAwaitAmount
	KindAwaitLocation
)

// Direction of a pending currency conversion.
type Direction int

const (
	DirectionNone Direction = iota
	USDToUZS
	UZSToUSD
	EURToUZS
	UZSToEUR
)

// Foreign returns the foreign currency code involved in the conversion.
func (d Direction) Foreign() string {
	switch d {
	case USDToUZS, UZSToUSD:
		return "USD"
	case EURToUZS, UZSToEUR:
		return "EUR"
	}
	return ""
}

// ToLocal reports whether the user enters a foreign amount to be converted
// into local currency.
func (d Direction) ToLocal() bool {
	return d == USDToUZS || d == EURToUZS
}

// Purpose of a pending location request.
type Purpose int

const (
	PurposeNone Purpose = iota
	PurposeOneShot
	PurposeSubscribe
)

// State is a user's single-slot conversation state. Starting a new flow
// overwrites (never stacks) the previous one.
type State struct {
	Kind      Kind
	Direction Direction
	Purpose   Purpose
}

func AwaitAmount(d Direction) State { return State{Kind: KindAwaitAmount, Direction: d} }
func AwaitLocation(p Purpose) State { return State{Kind: KindAwaitLocation, Purpose: p} }
