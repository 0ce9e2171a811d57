package rkf

import (
	"sort"
	"time"
)

// TRIP RECONSTRUCTION:
// The card keeps trips (TCST) and the event log (TCEL) separately. Putting
// them back together takes three passes over time-sorted inputs:
//
//  1. Dedup: a trip that is not checked out and shares its start with a
//     neighbouring checked-out trip is a stale copy and is dropped.
//  2. Correlate: movements are handed to trips in order. A movement belongs
//     to the first trip whose end (to the minute) is not before it; if it
//     also precedes that trip's start (to the minute) it is left unmatched.
//  3. Merge: administrative events and unmatched movements are collapsed
//     when adjacent entries carry the same fare.
//
// Minute truncation absorbs clock skew between validators and the card.

// Merged is a standalone entry of the trip list, collapsing one or more
// transactions of equal fare.
type Merged struct {
	Timestamp time.Time
	Fare      int
	Members   []Transaction
}

// Movement is one entry of the final trip list: either a trip or a merged
// standalone entry.
type Movement struct {
	Trip   *Trip
	Merged *Merged
}

// Timestamp returns the start of the entry.
func (m Movement) Timestamp() time.Time {
	if m.Trip != nil {
		return m.Trip.Start
	}
	return m.Merged.Timestamp
}

// Result is the output of Reconstruct.
type Result struct {
	// Trips are the surviving trips with their movements attached.
	Trips []Trip
	// Unmatched are movements no trip claimed.
	Unmatched []Transaction
	// Other are administrative transactions.
	Other []Transaction
	// Merged are Other and Unmatched after same-fare consolidation.
	Merged []Merged
	// Movements is Merged followed by Trips.
	Movements []Movement
}

// Reconstruct assigns transactions to trips. Inputs are not modified.
func Reconstruct(trips []Trip, transactions []Transaction) Result {
	sortedTrips := make([]Trip, len(trips))
	copy(sortedTrips, trips)
	sort.SliceStable(sortedTrips, func(i, j int) bool {
		return sortedTrips[i].Start.Before(sortedTrips[j].Start)
	})

	var moves, other []Transaction
	for _, tx := range transactions {
		if tx.Other() {
			other = append(other, tx)
		} else {
			moves = append(moves, tx)
		}
	}
	sortTransactions(moves)
	sortTransactions(other)

	var res Result
	res.Other = other

	kept := dedupTrips(sortedTrips)

	i := 0
	for k := range kept {
		trip := &kept[k]
		trip.Transactions = nil
		start := trip.Start.Truncate(time.Minute)
		end := trip.End.Truncate(time.Minute)

		for i < len(moves) && !moves[i].Timestamp.Truncate(time.Minute).After(end) {
			tx := moves[i]
			i++
			if tx.Timestamp.Truncate(time.Minute).Before(start) {
				res.Unmatched = append(res.Unmatched, tx)
				continue
			}
			trip.Transactions = append(trip.Transactions, tx)
		}
	}
	res.Unmatched = append(res.Unmatched, moves[i:]...)
	res.Trips = kept

	standalone := make([]Transaction, 0, len(other)+len(res.Unmatched))
	standalone = append(standalone, other...)
	standalone = append(standalone, res.Unmatched...)
	res.Merged = Merge(standalone)

	for k := range res.Merged {
		res.Movements = append(res.Movements, Movement{Merged: &res.Merged[k]})
	}
	for k := range res.Trips {
		res.Movements = append(res.Movements, Movement{Trip: &res.Trips[k]})
	}
	return res
}

func dedupTrips(trips []Trip) []Trip {
	supersededBy := func(cur Trip, j int) bool {
		if j < 0 || j >= len(trips) {
			return false
		}
		n := trips[j]
		return n.Start.Equal(cur.Start) && n.CheckoutCompleted && !cur.CheckoutCompleted
	}

	kept := make([]Trip, 0, len(trips))
	for i, t := range trips {
		if supersededBy(t, i-1) || supersededBy(t, i+1) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Merge sorts transactions by time and collapses runs of adjacent entries
// with the same fare into one entry dated at the earliest of them.
func Merge(transactions []Transaction) []Merged {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sortTransactions(sorted)

	var out []Merged
	for _, tx := range sorted {
		if n := len(out); n > 0 && out[n-1].Fare == tx.Fare() {
			out[n-1].Members = append(out[n-1].Members, tx)
			continue
		}
		out = append(out, Merged{Timestamp: tx.Timestamp, Fare: tx.Fare(), Members: []Transaction{tx}})
	}
	return out
}

func sortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
}
