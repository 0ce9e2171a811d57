package rkf

import (
	"time"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

// Trip is a decoded TCST record. An unfinished trip has CheckoutCompleted
// false and an End taken from the last movement the card saw, not from a
// check-out.
type Trip struct {
	Origin            Cursor
	Provider          int
	Start             time.Time
	End               time.Time
	StartPlace        int
	EndPlace          int
	CheckoutCompleted bool
	Price             int
	Passengers        int
	Zones             int
	Transfers         int
	ValidityMinutes   int

	// Transactions are the movements attached by Reconstruct.
	Transactions []Transaction
}

type rawTrip struct {
	ServiceProvider int `en1545:"ServiceProvider"`
	StartDateTime   int `en1545:"StartDateTime"`
	StartPlace      int `en1545:"StartPlace"`
	EndDateTime     int `en1545:"EndDateTime"`
	EndPlace        int `en1545:"EndPlace"`
	Status          int `en1545:"Status"`
	Price           int `en1545:"Price"`
	Passengers      int `en1545:"Passengers"`
	Zones           int `en1545:"Zones,optional"`
	Transfers       int `en1545:"Transfers,optional"`
	ValidityMinutes int `en1545:"ValidityMinutes,optional"`
}

// statusCheckoutCompleted is bit 1 (least significant) of the trip status.
const statusCheckoutCompleted = 1

func decodeTrip(r Record, p en1545.Parsed, loc *time.Location) (Trip, error) {
	var raw rawTrip
	if err := en1545.Unmarshal(p, &raw); err != nil {
		return Trip{}, err
	}

	t := Trip{
		Origin:            r.Origin,
		Provider:          raw.ServiceProvider,
		Start:             en1545.DateTimeLocalToTime(raw.StartDateTime, loc),
		StartPlace:        raw.StartPlace,
		EndPlace:          raw.EndPlace,
		CheckoutCompleted: bits.IsSet(byte(raw.Status), statusCheckoutCompleted),
		Price:             raw.Price,
		Passengers:        raw.Passengers,
		Zones:             raw.Zones,
		Transfers:         raw.Transfers,
		ValidityMinutes:   raw.ValidityMinutes,
	}
	t.End = t.Start
	if raw.EndDateTime != 0 {
		t.End = en1545.DateTimeLocalToTime(raw.EndDateTime, loc)
	}
	return t, nil
}
