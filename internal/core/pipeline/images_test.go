package pipeline

import "testing"

func TestIsLogoLike(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://site.com/images/logo.png", true},
		{"https://site.com/assets/FavIcon.ico", true},
		{"https://site.com/img/placeholder.jpg", true},
		{"https://site.com/photos/stew-hero.jpg", false},
		{"https://site.com/uploads/final-dish.webp", false},
	}

	for _, tt := range tests {
		if got := IsLogoLike(tt.url); got != tt.want {
			t.Errorf("IsLogoLike(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestChooseMainImagePrefersStructuredSource(t *testing.T) {
	var s ImageSelector
	candidates := []ImageCandidate{
		{URL: "https://site.com/marker.jpg", Width: 800, Height: 600, Source: SourceMarker},
		{URL: "https://site.com/og.jpg", Width: 800, Height: 600, Source: SourceOpenGraph},
		{URL: "https://site.com/jsonld.jpg", Width: 800, Height: 600, Source: SourceJSONLD},
	}

	if got := s.ChooseMainImage(candidates); got != "https://site.com/jsonld.jpg" {
		t.Errorf("got %q, want structured-data image", got)
	}
}

func TestChooseMainImageAreaBreaksTies(t *testing.T) {
	var s ImageSelector
	candidates := []ImageCandidate{
		{URL: "https://site.com/small.jpg", Width: 400, Height: 300, Source: SourceMarker},
		{URL: "https://site.com/big.jpg", Width: 1600, Height: 1200, Source: SourceMarker},
	}

	if got := s.ChooseMainImage(candidates); got != "https://site.com/big.jpg" {
		t.Errorf("got %q, want larger image", got)
	}
}

func TestChooseMainImageSkipsLogosAndSmallImages(t *testing.T) {
	var s ImageSelector
	candidates := []ImageCandidate{
		{URL: "https://site.com/logo.png", Width: 2000, Height: 2000, Source: SourceJSONLD},
		{URL: "https://site.com/tiny.jpg", Width: 100, Height: 100, Source: SourceJSONLD},
		{URL: "https://site.com/dish.jpg", Width: 640, Height: 480, Source: SourceMarker},
	}

	if got := s.ChooseMainImage(candidates); got != "https://site.com/dish.jpg" {
		t.Errorf("got %q, want the only qualified photo", got)
	}
}

func TestChooseMainImageFallsBackWhenNothingQualifies(t *testing.T) {
	var s ImageSelector
	candidates := []ImageCandidate{
		{URL: "https://site.com/tiny-a.jpg", Width: 50, Height: 50, Source: SourceMarker},
		{URL: "https://site.com/tiny-b.jpg", Width: 120, Height: 90, Source: SourceOpenGraph},
	}

	// Some image beats no image.
	if got := s.ChooseMainImage(candidates); got != "https://site.com/tiny-b.jpg" {
		t.Errorf("got %q, want the best unqualified candidate", got)
	}
}

func TestChooseMainImageEmpty(t *testing.T) {
	var s ImageSelector
	if got := s.ChooseMainImage(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestAttachStepImagesIfMissing(t *testing.T) {
	var s ImageSelector
	recipe := &ImportedRecipe{
		Instructions: []InstructionDraft{
			{Text: "Chop the onions."},
			{Text: "Fry everything.", MediaURL: "https://site.com/existing.jpg", MediaType: "image"},
			{Text: "Serve."},
		},
	}
	candidates := []ImageCandidate{
		{URL: "https://site.com/main.jpg", Source: SourceMarker, Order: 0},
		{URL: "https://site.com/step-late.jpg", Source: SourceMarker, Order: 5},
		{URL: "https://site.com/step-early.jpg", Source: SourceMarker, Order: 2},
		{URL: "https://site.com/logo.png", Source: SourceMarker, Order: 1},
		{URL: "https://site.com/og.jpg", Source: SourceOpenGraph, Order: 3},
		{URL: "https://site.com/small.jpg", Width: 100, Height: 80, Source: SourceMarker, Order: 4},
	}

	s.AttachStepImagesIfMissing(recipe, candidates, "https://site.com/main.jpg")

	if got := recipe.Instructions[0].MediaURL; got != "https://site.com/step-early.jpg" {
		t.Errorf("step 0 media = %q, want earliest leftover marker", got)
	}
	if got := recipe.Instructions[0].MediaType; got != "image" {
		t.Errorf("step 0 media type = %q, want image", got)
	}
	if got := recipe.Instructions[1].MediaURL; got != "https://site.com/existing.jpg" {
		t.Errorf("step 1 media = %q, existing media must not be replaced", got)
	}
	if got := recipe.Instructions[2].MediaURL; got != "https://site.com/step-late.jpg" {
		t.Errorf("step 2 media = %q, want next marker in document order", got)
	}
}

func TestAttachStepImagesUnknownDimensionsAllowed(t *testing.T) {
	var s ImageSelector
	recipe := &ImportedRecipe{
		Instructions: []InstructionDraft{{Text: "Mix."}},
	}
	candidates := []ImageCandidate{
		{URL: "https://site.com/unknown-size.jpg", Source: SourceMarker, Order: 0},
	}

	s.AttachStepImagesIfMissing(recipe, candidates, "")

	if got := recipe.Instructions[0].MediaURL; got != "https://site.com/unknown-size.jpg" {
		t.Errorf("got %q, dimensions are only enforced when known", got)
	}
}
