package lifecycle

import "github.com/akylbek/payment-system/connector-switch/internal/models"

// RefundStatusMapper translates processor refund codes into RefundStatus.
type RefundStatusMapper struct {
	table    map[string]models.RefundStatus
	fallback FallbackPolicy
}

func NewRefundStatusMapper(table map[string]models.RefundStatus, fallback FallbackPolicy) RefundStatusMapper {
	return RefundStatusMapper{table: normalizeTable(table), fallback: fallback}
}

// Lookup maps one code without regard to the current status.
func (m RefundStatusMapper) Lookup(processorStatus string) models.RefundStatus {
	if status, ok := m.table[normalize(processorStatus)]; ok {
		return status
	}
	if m.fallback == FallbackFailure {
		return models.RefundFailure
	}
	return models.RefundPending
}

// Map resolves the processor code and refuses to reopen a settled refund.
func (m RefundStatusMapper) Map(current models.RefundStatus, processorStatus string) models.RefundStatus {
	return AdvanceRefund(current, m.Lookup(processorStatus))
}

// AdvanceRefund never moves a refund out of Success or Failure.
func AdvanceRefund(current, next models.RefundStatus) models.RefundStatus {
	if current.IsTerminal() || next == "" {
		return current
	}
	return next
}
