package booking

import (
	"time"

	"venuehire/internal/domain/listings"
	"venuehire/internal/domain/shared/money"
)

// CancellationPolicySnapshot freezes the listing's terms at request time so later
// host edits do not change what the guest agreed to.
type CancellationPolicySnapshot struct {
	FreeCancellationUntil time.Time `json:"free_cancellation_until" bson:"free_cancellation_until"`
	PenaltyPercent        int       `json:"penalty_percent" bson:"penalty_percent"`
}

func SnapshotPolicy(terms listings.CancellationTerms, start time.Time) CancellationPolicySnapshot {
	return CancellationPolicySnapshot{
		FreeCancellationUntil: start.Add(-time.Duration(terms.FreeHoursBefore) * time.Hour),
		PenaltyPercent:        clampPercent(terms.PenaltyPercent),
	}
}

// CalculateRefund splits total into refund and penalty. Cancelling before
// FreeCancellationUntil is free, before start costs PenaltyPercent, and from the
// start onwards nothing is refunded.
func (c CancellationPolicySnapshot) CalculateRefund(total money.Money, cancelAt, start time.Time) (refund money.Money, penalty money.Money, err error) {
	if cancelAt.IsZero() {
		cancelAt = time.Now().UTC()
	}
	percent := 0
	switch {
	case !cancelAt.Before(start):
		percent = 100
	case !c.FreeCancellationUntil.IsZero() && cancelAt.Before(c.FreeCancellationUntil):
		percent = 0
	default:
		percent = clampPercent(c.PenaltyPercent)
	}
	penalty = percentOf(total, percent)
	refund, err = total.Sub(penalty)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return refund, penalty, nil
}

func percentOf(total money.Money, percent int) money.Money {
	if percent <= 0 {
		return money.Money{Amount: 0, Currency: total.Currency}
	}
	const percentBase = int64(100)
	amount := total.Amount * int64(percent) / percentBase
	return money.Money{Amount: amount, Currency: total.Currency}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
