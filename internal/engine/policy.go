package engine

import "fmt"

// Policy is the bidding rule set of a room, picked once from its mode.
type Policy interface {
	OpeningBid(item Item) int64
	Validate(team Team, lot Lot, amount int64) error
	NextBid(lot Lot, amount int64) int64
	Debits() bool
}

func PolicyFor(cfg Config) Policy {
	if cfg.Mode == ModeFriendly {
		return friendlyPolicy{}
	}
	return standardPolicy{minIncrement: cfg.MinIncrement}
}

// standardPolicy is a budget-constrained, strictly increasing auction.
type standardPolicy struct {
	minIncrement int64
}

func (standardPolicy) OpeningBid(item Item) int64 { return item.BasePrice }

func (p standardPolicy) Validate(team Team, lot Lot, amount int64) error {
	if amount > team.RemainingBudget {
		return fmt.Errorf("%w: bid %d exceeds remaining budget %d", ErrInsufficientBudget, amount, team.RemainingBudget)
	}
	if amount <= lot.CurrentBid {
		return fmt.Errorf("%w: bid must be higher than %d", ErrBidTooLow, lot.CurrentBid)
	}
	if p.minIncrement > 0 && lot.LeaderID != "" && amount < lot.CurrentBid+p.minIncrement {
		return fmt.Errorf("%w: minimum next bid is %d", ErrBidTooLow, lot.CurrentBid+p.minIncrement)
	}
	return nil
}

func (standardPolicy) NextBid(_ Lot, amount int64) int64 { return amount }

func (standardPolicy) Debits() bool { return true }

// friendlyPolicy is a draft: the latest claim leads, nothing is charged.
// The recorded bid only moves up so the lot stays monotonic.
type friendlyPolicy struct{}

func (friendlyPolicy) OpeningBid(Item) int64 { return 0 }

func (friendlyPolicy) Validate(_ Team, _ Lot, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (friendlyPolicy) NextBid(lot Lot, amount int64) int64 {
	return max(lot.CurrentBid, amount)
}

func (friendlyPolicy) Debits() bool { return false }
