/*
simulate.go - Balance simulation and critical-point detection

PURPOSE:
  Walks the month buckets accumulating a running balance from a starting
  balance, then scans the resulting series for months where the balance
  deteriorates sharply and attributes the largest contributing expense.

DETECTION RULE:
  For each consecutive pair of balance points with previousBalance > 0:

    dropFraction = (previousBalance - currentBalance) / previousBalance

  A month is critical when dropFraction > 0.30. Transitions from a zero
  or negative previous balance are never flagged; the fraction is not
  meaningful there.

ATTRIBUTION:
  Among the critical month's expenses, the one with the largest magnitude
  is flagged as the cause. The detector reports causes through its own
  returned set of event IDs rather than marking ProjectedEvents in place,
  keeping the pipeline side-effect-free.

SEE ALSO:
  - project.go: produces the events consumed here
*/
package forecast

import "github.com/shopspring/decimal"

// DropThreshold is the month-over-month drop fraction above which a
// balance transition is considered critical.
var DropThreshold = decimal.NewFromFloat(0.30)

// =============================================================================
// BALANCE SIMULATOR
// =============================================================================

// Simulate walks buckets in index order, summing the signed amounts of
// the events in each bucket onto a running total seeded by
// startingBalance. One BalancePoint is produced per bucket; the point
// for index 0 already includes that month's net.
func Simulate(startingBalance decimal.Decimal, events []ProjectedEvent, buckets []MonthBucket) []BalancePoint {
	net := make(map[int]decimal.Decimal, len(buckets))
	for _, e := range events {
		net[e.BucketIndex] = net[e.BucketIndex].Add(e.Amount)
	}

	points := make([]BalancePoint, 0, len(buckets))
	balance := startingBalance
	for _, b := range buckets {
		balance = balance.Add(net[b.Index])
		points = append(points, BalancePoint{BucketIndex: b.Index, Balance: balance})
	}
	return points
}

// =============================================================================
// CRITICAL-POINT DETECTOR
// =============================================================================

// DetectCriticalPoints scans consecutive balance points for drops
// exceeding DropThreshold and attributes each critical month's largest
// expense. It returns the critical points in month order plus the set of
// flagged (attributed) projected-event IDs. A series with no qualifying
// drop yields an empty slice and set.
func DetectCriticalPoints(points []BalancePoint, events []ProjectedEvent) ([]CriticalPoint, map[string]bool) {
	var critical []CriticalPoint
	flagged := make(map[string]bool)

	for i := 1; i < len(points); i++ {
		prev := points[i-1].Balance
		if !prev.IsPositive() {
			continue
		}

		drop := prev.Sub(points[i].Balance).Div(prev)
		if !drop.GreaterThan(DropThreshold) {
			continue
		}

		cp := CriticalPoint{
			BucketIndex: points[i].BucketIndex,
			Balance:     points[i].Balance,
		}
		if cause, ok := largestExpense(events, points[i].BucketIndex); ok {
			cp.CauseEventID = cause.ID
			cp.CauseName = cause.Name
			flagged[cause.ID] = true
		}
		critical = append(critical, cp)
	}

	return critical, flagged
}

// NextCriticalPoint returns the earliest critical point of the series,
// for "next crisis" summaries. Full detection still scans the whole
// series so later points remain available to callers who need them.
func NextCriticalPoint(points []BalancePoint, events []ProjectedEvent) *CriticalPoint {
	critical, _ := DetectCriticalPoints(points, events)
	if len(critical) == 0 {
		return nil
	}
	return &critical[0]
}

// largestExpense returns the most negative event of the bucket.
func largestExpense(events []ProjectedEvent, bucketIndex int) (ProjectedEvent, bool) {
	var worst ProjectedEvent
	found := false
	for _, e := range events {
		if e.BucketIndex != bucketIndex || !e.Amount.IsNegative() {
			continue
		}
		if !found || e.Amount.LessThan(worst.Amount) {
			worst = e
			found = true
		}
	}
	return worst, found
}
