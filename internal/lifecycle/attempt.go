package lifecycle

import "github.com/akylbek/payment-system/connector-switch/internal/models"

// AttemptStatusMapper maps one connector's payment status codes. Lookups are
// case-insensitive. The zero value maps everything to pending.
type AttemptStatusMapper struct {
	table    map[string]models.AttemptStatus
	fallback FallbackPolicy
}

// NewAttemptStatusMapper matches processor codes case-insensitively.
func NewAttemptStatusMapper(table map[string]models.AttemptStatus, fallback FallbackPolicy) AttemptStatusMapper {
	return AttemptStatusMapper{table: normalizeTable(table), fallback: fallback}
}

// Lookup returns the status mapped to the processor code, or the fallback.
func (m AttemptStatusMapper) Lookup(processorStatus string) models.AttemptStatus {
	if status, ok := m.table[normalize(processorStatus)]; ok {
		return status
	}
	if m.fallback == FallbackFailure {
		return models.AttemptFailure
	}
	return models.AttemptPending
}

// Known reports whether the processor code is in the table.
func (m AttemptStatusMapper) Known(processorStatus string) bool {
	_, ok := m.table[normalize(processorStatus)]
	return ok
}

// Map resolves a processor status plus next action into the status the
// attempt moves to from current.
func (m AttemptStatusMapper) Map(current models.AttemptStatus, processorStatus string, next models.NextAction) models.AttemptStatus {
	return Advance(current, ApplyNextAction(current, m.Lookup(processorStatus), next))
}

// ApplyNextAction refines a mapped status using the connector's requested
// next action. A repeated device-data or customer-action request while the
// attempt is already waiting on it fails authentication instead of sending
// the client around the same loop again.
func ApplyNextAction(current, mapped models.AttemptStatus, next models.NextAction) models.AttemptStatus {
	if mapped.IsTerminal() {
		return mapped
	}
	switch next {
	case models.NextActionWaitingDeviceDataCollection:
		if current == models.AttemptDeviceDataCollectionPending {
			return models.AttemptAuthenticationFailed
		}
		return models.AttemptDeviceDataCollectionPending
	case models.NextActionRequiresCustomerAction:
		if current == models.AttemptAuthenticationPending {
			return models.AttemptAuthenticationFailed
		}
		return models.AttemptAuthenticationPending
	case models.NextActionRedirectToURL:
		return models.AttemptAuthenticationPending
	}
	return mapped
}

// Advance applies the monotonic rule: a terminal status is never left.
func Advance(current, next models.AttemptStatus) models.AttemptStatus {
	if current.IsTerminal() || next == "" {
		return current
	}
	return next
}
