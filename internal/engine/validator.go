package engine

import (
	"fmt"
	"unicode/utf8"

	"github.com/zexoverz/dominion-sub001/internal/domain"
)

// Границы структурной валидации предложения
const (
	titleMinLen     = 5
	titleMaxLen     = 200
	descMinLen      = 10
	descMaxLen      = 1000
	stepTitleMinLen = 3
	stepTitleMaxLen = 200
	maxSteps        = 20
)

// ValidationError — ожидаемый бизнес-исход, а не инфраструктурный сбой.
// Оркестратор превращает его в структурированный отказ без записи в БД.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateProposal выполняет проверки строго по порядку и останавливается
// на первой неудаче. Побочных эффектов нет; каталог статичен, так что
// вердикт детерминирован.
func ValidateProposal(p *domain.Proposal) *ValidationError {
	if p.AgentID == "" {
		return invalid("agent_id", "must not be empty")
	}
	if n := utf8.RuneCountInString(p.Title); n < titleMinLen || n > titleMaxLen {
		return invalid("title", "length must be %d-%d characters, got %d", titleMinLen, titleMaxLen, n)
	}
	if n := utf8.RuneCountInString(p.Description); n < descMinLen || n > descMaxLen {
		return invalid("description", "length must be %d-%d characters, got %d", descMinLen, descMaxLen, n)
	}
	if p.Priority < 1 || p.Priority > 100 {
		return invalid("priority", "must be in range 1-100, got %d", p.Priority)
	}
	if len(p.ProposedSteps) == 0 {
		return invalid("proposed_steps", "at least one step is required")
	}
	if len(p.ProposedSteps) > maxSteps {
		return invalid("proposed_steps", "at most %d steps allowed, got %d", maxSteps, len(p.ProposedSteps))
	}
	for i, st := range p.ProposedSteps {
		if _, ok := domain.CatalogLookup(st.Kind); !ok {
			return invalid("proposed_steps", "step %d: unknown kind %q", i+1, st.Kind)
		}
		if n := utf8.RuneCountInString(st.Title); n < stepTitleMinLen || n > stepTitleMaxLen {
			return invalid("proposed_steps", "step %d: title length must be %d-%d characters, got %d",
				i+1, stepTitleMinLen, stepTitleMaxLen, n)
		}
	}
	return nil
}
