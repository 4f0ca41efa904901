package pipeline

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractHeuristicWellStructuredPage(t *testing.T) {
	page := `<html><head>
		<meta property="og:description" content="A weeknight classic.">
	</head><body>
		<h1>Spaghetti Aglio e Olio</h1>
		<h2>Ingredients</h2>
		<ul>
			<li>400g spaghetti</li>
			<li>6 cloves garlic</li>
			<li>1/2 cup olive oil</li>
		</ul>
		<h2>Instructions</h2>
		<ol>
			<li>Boil the pasta.</li>
			<li>Sizzle the garlic in oil.</li>
			<li>Toss together and serve.</li>
		</ol>
	</body></html>`

	result := ExtractHeuristic(mustDoc(t, page), "https://site.com/recipe")

	if result.Recipe.Title != "Spaghetti Aglio e Olio" {
		t.Errorf("title = %q", result.Recipe.Title)
	}
	if result.Recipe.Description != "A weeknight classic." {
		t.Errorf("description = %q", result.Recipe.Description)
	}
	if len(result.Ingredients) != 3 {
		t.Errorf("ingredients = %v, want 3", result.Ingredients)
	}
	if len(result.Recipe.Instructions) != 3 {
		t.Errorf("instructions = %d, want 3", len(result.Recipe.Instructions))
	}
	// Strong ingredient list + strong step list + title.
	if result.Confidence < 1 {
		t.Errorf("confidence = %v, want 1", result.Confidence)
	}
	if !strings.Contains(result.ExtractedText, "- 400g spaghetti") {
		t.Errorf("extracted text missing ingredients:\n%s", result.ExtractedText)
	}
	if !strings.Contains(result.ExtractedText, "1. Boil the pasta.") {
		t.Errorf("extracted text missing numbered steps:\n%s", result.ExtractedText)
	}
}

func TestExtractHeuristicEmptyPage(t *testing.T) {
	page := `<html><body><p>Tonight I rambled about my garden and the weather.</p></body></html>`

	result := ExtractHeuristic(mustDoc(t, page), "")

	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", result.Confidence)
	}
	if result.ExtractedText != "" {
		t.Errorf("extracted text = %q, a page with no recipe signals must yield nothing so the caller falls back to the raw body text", result.ExtractedText)
	}
}

func TestExtractHeuristicIngredientShapeFallback(t *testing.T) {
	// No "Ingredients" heading; the quantity-shaped list must still win over
	// the navigation list.
	page := `<html><body>
		<ul>
			<li>Home</li>
			<li>About</li>
			<li>Contact</li>
		</ul>
		<ul>
			<li>2 cups flour</li>
			<li>1 tsp salt</li>
			<li>3 eggs</li>
			<li>a pinch of nutmeg</li>
		</ul>
	</body></html>`

	result := ExtractHeuristic(mustDoc(t, page), "")

	if len(result.Ingredients) != 4 {
		t.Fatalf("ingredients = %v, want the quantity-shaped list", result.Ingredients)
	}
	if result.Ingredients[0] != "2 cups flour" {
		t.Errorf("first ingredient = %q", result.Ingredients[0])
	}
}

func TestExtractHeuristicParagraphSteps(t *testing.T) {
	page := `<html><body>
		<h1>Flatbread</h1>
		<h2>Method</h2>
		<p>Step 1: Mix the dough. Rest it for an hour.</p>
		<p>2. Roll out and griddle each piece.</p>
		<h2>Notes</h2>
		<p>Keeps for two days.</p>
	</body></html>`

	result := ExtractHeuristic(mustDoc(t, page), "")

	steps := result.Recipe.Instructions
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want sentences split into 3: %+v", len(steps), steps)
	}
	if steps[0].Text != "Mix the dough." {
		t.Errorf("step 0 = %q, want leading step number stripped", steps[0].Text)
	}
	if steps[2].Text != "Roll out and griddle each piece." {
		t.Errorf("step 2 = %q", steps[2].Text)
	}
	for _, s := range steps {
		if strings.Contains(s.Text, "Keeps for two days") {
			t.Error("content after the next heading must not leak into steps")
		}
	}
}

func TestExtractHeuristicLowConfidenceOnBarePage(t *testing.T) {
	page := `<html><body><p>Welcome to my blog about gardening.</p></body></html>`

	result := ExtractHeuristic(mustDoc(t, page), "")

	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for a page with nothing", result.Confidence)
	}
	if len(result.Recipe.Instructions) != 1 {
		// The single long paragraph still becomes fallback text.
		t.Errorf("instructions = %d", len(result.Recipe.Instructions))
	}
}

func TestSplitSteps(t *testing.T) {
	got := splitSteps("Step 1: Chop onions. Heat the pan.\n2) Add oil.")
	want := []string{"Chop onions.", "Heat the pan.", "Add oil."}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, got[i], want[i])
		}
	}
}
