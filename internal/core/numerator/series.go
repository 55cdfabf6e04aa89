// Package numerator issues human-readable document numbers such as
// TRF-2026-00042. Storage-backed generators live in infrastructure/numerator.
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Reset is how often a series starts again from 1.
type Reset int

const (
	ResetYearly Reset = iota
	ResetMonthly
	ResetNever
)

// Series is a family of document numbers sharing a prefix.
type Series struct {
	Prefix string
	Width  int
	Reset  Reset
}

// Document series used by the ledgers.
var (
	Transfers = Series{Prefix: "TRF", Width: 5}
	Purchases = Series{Prefix: "PUR", Width: 5}
	Rentals   = Series{Prefix: "RNT", Width: 5}
)

// Generator issues the next number of a series. Storage-backed generators
// take the number inside the caller's unit, so a rolled-back unit does not
// consume it.
type Generator interface {
	Next(ctx context.Context, s Series, at time.Time) (string, error)
}

// Issue takes the next number of s for the current time.
func Issue(ctx context.Context, g Generator, s Series) (string, error) {
	return g.Next(ctx, s, time.Now().UTC())
}

// Key is the counter key of s for the period containing at.
func (s Series) Key(at time.Time) string {
	switch s.Reset {
	case ResetMonthly:
		return s.Prefix + "_" + at.Format("2006_01")
	case ResetNever:
		return s.Prefix
	default:
		return s.Prefix + "_" + at.Format("2006")
	}
}

// Format renders counter value n. Series that reset include the year.
func (s Series) Format(at time.Time, n int64) string {
	width := s.Width
	if width <= 0 {
		width = 5
	}
	if s.Reset == ResetNever {
		return fmt.Sprintf("%s-%0*d", s.Prefix, width, n)
	}
	return fmt.Sprintf("%s-%s-%0*d", s.Prefix, at.Format("2006"), width, n)
}
