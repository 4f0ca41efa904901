package pipeline

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"lowercases", []string{"Dinner", "QUICK"}, []string{"dinner", "quick"}},
		{"dedupes", []string{"soup", "Soup", "SOUP"}, []string{"soup"}},
		{"truncates to three", []string{"a", "b", "c", "d"}, []string{"a", "b", "c"}},
		{"drops empties", []string{"", "  ", "ok"}, []string{"ok"}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeRecipeServings(t *testing.T) {
	for _, servings := range []int{0, -2, 1000, 5000} {
		rec := &ImportedRecipe{Servings: servings}
		NormalizeRecipe(rec)
		if rec.Servings != 1 {
			t.Errorf("servings %d normalized to %d, want 1", servings, rec.Servings)
		}
	}

	rec := &ImportedRecipe{Servings: 6}
	NormalizeRecipe(rec)
	if rec.Servings != 6 {
		t.Errorf("valid servings changed to %d", rec.Servings)
	}
}

func TestNormalizeRecipeNutrition(t *testing.T) {
	t.Run("out of range dropped", func(t *testing.T) {
		rec := &ImportedRecipe{
			NutritionMode: NutritionManual,
			Nutrition:     &Nutrition{Calories: 12000, Protein: 10, Carbs: 10, Fat: 10},
		}
		NormalizeRecipe(rec)
		if rec.Nutrition != nil {
			t.Error("out-of-range nutrition must be dropped")
		}
		if rec.NutritionMode != NutritionAuto {
			t.Errorf("mode = %q, want auto after drop", rec.NutritionMode)
		}
	})

	t.Run("negative dropped", func(t *testing.T) {
		rec := &ImportedRecipe{Nutrition: &Nutrition{Calories: 100, Protein: -1, Carbs: 5, Fat: 5}}
		NormalizeRecipe(rec)
		if rec.Nutrition != nil {
			t.Error("negative nutrition must be dropped")
		}
	})

	t.Run("valid kept as manual", func(t *testing.T) {
		rec := &ImportedRecipe{Nutrition: &Nutrition{Calories: 400, Protein: 20, Carbs: 30, Fat: 15}}
		NormalizeRecipe(rec)
		if rec.Nutrition == nil {
			t.Fatal("valid nutrition must survive")
		}
		if rec.NutritionMode != NutritionManual {
			t.Errorf("mode = %q, want manual", rec.NutritionMode)
		}
	})
}

func TestNormalizeRecipePreparedMentions(t *testing.T) {
	half := 0.5
	rec := &ImportedRecipe{
		Instructions: []InstructionDraft{{
			Text: "Fold in the cooked rice.",
			Ingredients: []IngredientMention{{
				Name:        "cooked rice",
				IsPrepared:  true,
				Quantity:    &ParsedQuantity{Text: "1/2", Numeric: &half},
				Measurement: "cup",
			}},
		}},
	}
	NormalizeRecipe(rec)

	mention := rec.Instructions[0].Ingredients[0]
	if mention.Quantity != nil {
		t.Error("prepared mention must not carry a quantity")
	}
	if mention.Measurement != "" {
		t.Error("prepared mention must not carry a measurement")
	}
	if mention.DisplayName != "cooked rice" {
		t.Errorf("display name = %q, want defaulted from name", mention.DisplayName)
	}
}

func TestNormalizeRecipeNilSlices(t *testing.T) {
	rec := &ImportedRecipe{
		Instructions: []InstructionDraft{{Text: "Stir."}},
	}
	NormalizeRecipe(rec)

	if rec.Tags == nil {
		t.Error("tags must never be nil")
	}
	if rec.Instructions[0].Ingredients == nil {
		t.Error("per-step ingredients must never be nil")
	}
}
