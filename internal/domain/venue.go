package domain

import (
	"errors"
	"time"
)

// ErrInvalidVenue indicates an unsupported lending venue.
var ErrInvalidVenue = errors.New("unsupported venue")

// Venue is a DeFi lending venue savings can be supplied to.
type Venue string

// Supported venues.
const (
	VenueAave   Venue = "aave"
	VenueMorpho Venue = "morpho"
)

// Recommendation is the latest venue pick.
type Recommendation struct {
	Platform  Venue     `json:"platform"`
	Fallback  bool      `json:"fallback"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnsignedTx is call data left for a hardware wallet to sign.
type UnsignedTx struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}
