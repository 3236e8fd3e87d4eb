package sales

import "github.com/talkincode/toughpos/internal/domain"

// transitions lists the allowed status moves, cancelled and refunded are terminal.
var transitions = map[domain.TransactionStatus][]domain.TransactionStatus{
	domain.StatusPending:   {domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusCompleted: {domain.StatusCancelled, domain.StatusRefunded},
}

// CanTransition reports whether a transaction may move from one status to another.
func CanTransition(from, to domain.TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// restoresStock reports whether a valid transition gives the sold units back.
// Stock leaves the shelf when the transaction is created, whatever its initial
// status, so both cancelling and refunding return it.
func restoresStock(from, to domain.TransactionStatus) bool {
	if from != domain.StatusPending && from != domain.StatusCompleted {
		return false
	}
	return to == domain.StatusCancelled || to == domain.StatusRefunded
}
