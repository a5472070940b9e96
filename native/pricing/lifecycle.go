package pricing

import "fmt"

// Phase is the time-derived lifecycle state of an ephemeral offering. Phases
// are never stored; they are recomputed from the caller-supplied clock on
// every read.
type Phase uint8

const (
	// PhaseSale precedes confirmationOpen: assets trade at the static price
	// and cannot yet be confirmed.
	PhaseSale Phase = iota
	// PhaseResale spans confirmationOpen..confirmationDeadline: static price,
	// confirmation window open.
	PhaseResale
	// PhaseAuction spans confirmationDeadline..finalDeadline: the price decays
	// to zero by auctionDeadline and stays at the floor until finalDeadline.
	// Confirmation is still accepted.
	PhaseAuction
	// PhaseExpired follows finalDeadline: every unconfirmed asset is
	// worthless and unpurchasable.
	PhaseExpired
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseSale:
		return "sale"
	case PhaseResale:
		return "resale"
	case PhaseAuction:
		return "auction"
	case PhaseExpired:
		return "expired"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Schedule holds the four deadlines driving the ephemeral price curve. It is
// immutable once constructed; the ordering invariant is checked exactly once.
type Schedule struct {
	ConfirmationOpen     int64
	ConfirmationDeadline int64
	AuctionDeadline      int64
	FinalDeadline        int64
}

// NewSchedule validates the deadline ordering and returns the schedule.
func NewSchedule(confirmationOpen, confirmationDeadline, auctionDeadline, finalDeadline int64) (Schedule, error) {
	s := Schedule{
		ConfirmationOpen:     confirmationOpen,
		ConfirmationDeadline: confirmationDeadline,
		AuctionDeadline:      auctionDeadline,
		FinalDeadline:        finalDeadline,
	}
	if confirmationOpen > confirmationDeadline {
		return Schedule{}, fmt.Errorf("pricing: confirmation open %d after deadline %d", confirmationOpen, confirmationDeadline)
	}
	if confirmationDeadline > auctionDeadline {
		return Schedule{}, fmt.Errorf("pricing: confirmation deadline %d after auction deadline %d", confirmationDeadline, auctionDeadline)
	}
	if auctionDeadline > finalDeadline {
		return Schedule{}, fmt.Errorf("pricing: auction deadline %d after final deadline %d", auctionDeadline, finalDeadline)
	}
	return s, nil
}

// PhaseAt derives the lifecycle phase at the supplied unix timestamp.
func (s Schedule) PhaseAt(now int64) Phase {
	switch {
	case now > s.FinalDeadline:
		return PhaseExpired
	case now >= s.ConfirmationDeadline:
		return PhaseAuction
	case now >= s.ConfirmationOpen:
		return PhaseResale
	default:
		return PhaseSale
	}
}

// ConfirmableAt reports whether the one-way confirmation is accepted at the
// supplied timestamp. Confirmation opens with Resale and closes for good at
// the final deadline.
func (s Schedule) ConfirmableAt(now int64) bool {
	phase := s.PhaseAt(now)
	return phase == PhaseResale || phase == PhaseAuction
}
