package engine

import "github.com/zexoverz/dominion-sub001/internal/domain"

// EstimateCost возвращает каталожную стоимость набора шагов.
// Неизвестные виды дают 0 — валидатор отсекает их раньше.
// Клиентские цифры стоимости не участвуют никогда.
func EstimateCost(steps []domain.StepTemplate) float64 {
	var total float64
	for _, st := range steps {
		if entry, ok := domain.CatalogLookup(st.Kind); ok {
			total += entry.BaseCostUsd
		}
	}
	return total
}
