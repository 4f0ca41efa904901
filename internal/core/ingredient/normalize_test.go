package ingredient

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Chicken Breast", "chicken breast"},
		{"strips amounts", "2 large eggs", "egg"},
		{"strips parentheticals", "butter (softened, about 100g)", "butter"},
		{"strips prep words", "finely chopped fresh parsley", "parsley"},
		{"strips trailing purpose", "olive oil for frying", "olive oil"},
		{"singularizes", "tomatoes", "tomato"},
		{"singularizes last word only", "spring onions", "spring onion"},
		{"keeps hyphens", "half-and-half", "half-and-half"},
		{"strips punctuation and emoji", "garlic!! 🧄", "garlic"},
		{"keeps accents", "jalapeño", "jalapeño"},
		{"accented plural fallback", "jalapeños", "jalapeño"},
		{"empty after stripping", "2 large (optional)", ""},
		{"empty input", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
