package rkf

import (
	"fmt"
	"time"

	"github.com/gregLibert/transit-card/pkg/en1545"
)

// EventCode classifies a TCEL transaction. Codes below 0x10 are movements of
// the card holder and take part in trip correlation; the others are
// administrative and bypass it.
type EventCode int

const (
	EventCheckIn    EventCode = 0x01
	EventCheckOut   EventCode = 0x02
	EventTransfer   EventCode = 0x03
	EventInspection EventCode = 0x04

	EventLoad       EventCode = 0x10
	EventAutoload   EventCode = 0x11
	EventRefund     EventCode = 0x12
	EventTicketSale EventCode = 0x20
	EventAdmin      EventCode = 0x30
)

var eventNames = map[EventCode]string{
	EventCheckIn:    "check-in",
	EventCheckOut:   "check-out",
	EventTransfer:   "transfer",
	EventInspection: "inspection",
	EventLoad:       "load",
	EventAutoload:   "autoload",
	EventRefund:     "refund",
	EventTicketSale: "ticket sale",
	EventAdmin:      "administrative",
}

func (c EventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("event %02X", int(c))
}

// Other reports whether the code is administrative.
func (c EventCode) Other() bool { return c >= 0x10 }

// Transaction is a decoded TCEL record.
type Transaction struct {
	Origin    Cursor
	Provider  int
	Timestamp time.Time
	Code      EventCode
	Place     int
	Device    int
	Price     int
	Sequence  int
}

// Other reports whether t bypasses trip correlation.
func (t Transaction) Other() bool { return t.Code.Other() }

// Fare is the signed amount shown to the user: money put on the card is
// negative.
func (t Transaction) Fare() int {
	switch t.Code {
	case EventLoad, EventAutoload, EventRefund:
		return -t.Price
	default:
		return t.Price
	}
}

type rawTransaction struct {
	ServiceProvider int `en1545:"ServiceProvider"`
	EventDateTime   int `en1545:"EventDateTime"`
	EventCode       int `en1545:"EventCode"`
	Place           int `en1545:"Place"`
	Device          int `en1545:"Device,optional"`
	Price           int `en1545:"Price"`
	Sequence        int `en1545:"Sequence"`
}

func decodeTransaction(r Record, p en1545.Parsed, loc *time.Location) (Transaction, error) {
	var raw rawTransaction
	if err := en1545.Unmarshal(p, &raw); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Origin:    r.Origin,
		Provider:  raw.ServiceProvider,
		Timestamp: en1545.DateTimeLocalToTime(raw.EventDateTime, loc),
		Code:      EventCode(raw.EventCode),
		Place:     raw.Place,
		Device:    raw.Device,
		Price:     raw.Price,
		Sequence:  raw.Sequence,
	}, nil
}
