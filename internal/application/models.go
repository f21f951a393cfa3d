package application

import "github.com/dshestakov/aichat/internal/domain/model"

// PreferredModels is the ranking applied to the fetched model list before
// display: these ids come first, in this order.
var PreferredModels = []string{
	"deepseek/deepseek-coder",
	"anthropic/claude-3-sonnet",
	"deepseek/deepseek-r1-distill-llama-70b:free",
}

// RankModels partitions models into preferred and others. Preferred models
// appear first in PreferredModels order; the rest keep their fetched order.
// Nothing is dropped.
func RankModels(models []model.ModelInfo) []model.ModelInfo {
	rank := make(map[string]int, len(PreferredModels))
	for i, id := range PreferredModels {
		rank[id] = i
	}

	preferred := make([]model.ModelInfo, len(PreferredModels))
	present := make([]bool, len(PreferredModels))
	others := make([]model.ModelInfo, 0, len(models))

	for _, m := range models {
		if i, ok := rank[m.ID]; ok {
			preferred[i] = m
			present[i] = true
		} else {
			others = append(others, m)
		}
	}

	ranked := make([]model.ModelInfo, 0, len(models))
	for i, m := range preferred {
		if present[i] {
			ranked = append(ranked, m)
		}
	}
	return append(ranked, others...)
}
