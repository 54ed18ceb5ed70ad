package lifecycle

import "github.com/akylbek/payment-system/connector-switch/internal/models"

// DisputeStageMapper translates processor dispute codes into stages.
type DisputeStageMapper struct {
	table    map[string]models.DisputeStage
	fallback models.DisputeStage
}

// NewDisputeStageMapper builds a mapper whose unknown codes resolve to
// fallback, or to DisputeStageDispute when fallback is empty.
func NewDisputeStageMapper(table map[string]models.DisputeStage, fallback models.DisputeStage) DisputeStageMapper {
	if fallback == "" {
		fallback = models.DisputeStageDispute
	}
	return DisputeStageMapper{table: normalizeTable(table), fallback: fallback}
}

func (m DisputeStageMapper) Lookup(processorStage string) models.DisputeStage {
	if stage, ok := m.table[normalize(processorStage)]; ok {
		return stage
	}
	if m.fallback == "" {
		return models.DisputeStageDispute
	}
	return m.fallback
}

func (m DisputeStageMapper) Map(current models.DisputeStage, processorStage string) models.DisputeStage {
	return AdvanceDispute(current, m.Lookup(processorStage))
}

// AdvanceDispute keeps the later of the two stages.
func AdvanceDispute(current, next models.DisputeStage) models.DisputeStage {
	if next.Rank() < current.Rank() {
		return current
	}
	return next
}
