// Package core provides the ledger domain: transactions, accounts, filters,
// tagged money values and the report row types.
//
// This file contains the tagged Money value and amount parsing.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount tagged with the unit it is expressed in. Converted is
// true when the amount is the home-currency conversion rather than the native
// transaction amount.
type Money struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Converted bool            `json:"converted"`
}

// Unit identifies what a Money amount can be summed with.
type Unit struct {
	Currency  string
	Converted bool
}

func (m Money) Unit() Unit {
	return Unit{Currency: m.Currency, Converted: m.Converted}
}

// UnitTracker remembers the first unit added to an aggregate and whether a
// different one was added later.
type UnitTracker struct {
	unit  Unit
	set   bool
	mixed bool
}

func (u *UnitTracker) Add(m Money) {
	if !u.set {
		u.unit, u.set = m.Unit(), true
		return
	}
	if m.Unit() != u.unit {
		u.mixed = true
	}
}

// Merge folds another tracker in, as if all its amounts had been added.
func (u *UnitTracker) Merge(o UnitTracker) {
	if !o.set {
		return
	}
	if o.mixed {
		u.mixed = true
	}
	u.Add(Money{Currency: o.unit.Currency, Converted: o.unit.Converted})
}

// Currency returns the shared currency, or "" when nothing was added or the
// units were mixed.
func (u UnitTracker) Currency() string {
	if !u.set || u.mixed {
		return ""
	}
	return u.unit.Currency
}

func (u UnitTracker) Mixed() bool {
	return u.mixed
}

// ParseAmount converts a decimal string to a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Thousands separators are not supported.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("-1000000") -> -1000000, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
