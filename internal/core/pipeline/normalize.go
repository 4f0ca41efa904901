package pipeline

import "strings"

const maxTags = 3

// NormalizeRecipe enforces the output invariants in place. It runs after
// every extraction path, LLM-backed or not, so downstream consumers never
// see partial nutrition, oversized tag lists or nil ingredient slices.
func NormalizeRecipe(rec *ImportedRecipe) {
	if rec == nil {
		return
	}

	rec.Title = strings.TrimSpace(rec.Title)
	rec.Description = strings.TrimSpace(rec.Description)
	rec.Tags = NormalizeTags(rec.Tags)

	if rec.Servings <= 0 || rec.Servings >= 1000 {
		rec.Servings = 1
	}

	if !validNutrition(rec.Nutrition) {
		rec.Nutrition = nil
	}
	if rec.Nutrition == nil {
		if rec.NutritionMode != NutritionNone {
			rec.NutritionMode = NutritionAuto
		}
	} else {
		rec.NutritionMode = NutritionManual
	}

	if rec.Instructions == nil {
		rec.Instructions = []InstructionDraft{}
	}
	for i := range rec.Instructions {
		inst := &rec.Instructions[i]
		inst.Text = strings.TrimSpace(inst.Text)
		if inst.Ingredients == nil {
			inst.Ingredients = []IngredientMention{}
		}
		for j := range inst.Ingredients {
			mention := &inst.Ingredients[j]
			mention.Name = strings.TrimSpace(mention.Name)
			if mention.DisplayName == "" {
				mention.DisplayName = mention.Name
			}
			// Prepared mentions reference an ingredient measured earlier;
			// they never carry a new amount.
			if mention.IsPrepared {
				mention.Quantity = nil
				mention.Measurement = ""
			}
		}
	}
}

// NormalizeTags lowercases, deduplicates and truncates a tag list to three.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, maxTags)
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func validNutrition(n *Nutrition) bool {
	if n == nil {
		return false
	}
	for _, v := range [4]float64{n.Calories, n.Protein, n.Carbs, n.Fat} {
		if v < 0 || v >= 10000 {
			return false
		}
	}
	return true
}
