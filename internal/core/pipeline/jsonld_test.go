package pipeline

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestSalvageJSON(t *testing.T) {
	t.Run("well formed object", func(t *testing.T) {
		roots := SalvageJSON(`{"@type":"Recipe","name":"Stew"}`)
		if len(roots) != 1 {
			t.Fatalf("got %d roots, want 1", len(roots))
		}
	})

	t.Run("html comment wrapped", func(t *testing.T) {
		roots := SalvageJSON(`<!-- {"@type":"Recipe","name":"Stew"} -->`)
		if len(roots) != 1 {
			t.Fatalf("got %d roots, want 1", len(roots))
		}
		obj := roots[0].(map[string]interface{})
		if obj["name"] != "Stew" {
			t.Errorf("name = %v, want Stew", obj["name"])
		}
	})

	t.Run("concatenated objects", func(t *testing.T) {
		roots := SalvageJSON(`{"a":1}{"b":2}`)
		if len(roots) != 2 {
			t.Fatalf("got %d roots, want 2", len(roots))
		}
	})

	t.Run("concatenated with one broken", func(t *testing.T) {
		roots := SalvageJSON(`{"a":1}{"b":`)
		if len(roots) != 1 {
			t.Fatalf("got %d roots, want 1 salvaged", len(roots))
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if roots := SalvageJSON("not json at all"); roots != nil {
			t.Errorf("got %v, want nil", roots)
		}
	})
}

func TestBestRecipeNode(t *testing.T) {
	t.Run("finds recipe inside graph", func(t *testing.T) {
		roots := SalvageJSON(`{
			"@context": "https://schema.org",
			"@graph": [
				{"@type": "WebPage", "name": "Page"},
				{"@type": "Recipe", "name": "Stew", "recipeIngredient": ["1 onion"]}
			]
		}`)
		node, ok := BestRecipeNode(roots)
		if !ok {
			t.Fatal("expected a recipe node")
		}
		if node["name"] != "Stew" {
			t.Errorf("name = %v, want Stew", node["name"])
		}
	})

	t.Run("type as list", func(t *testing.T) {
		roots := SalvageJSON(`{"@type": ["Thing", "Recipe"], "name": "Stew"}`)
		if _, ok := BestRecipeNode(roots); !ok {
			t.Fatal("expected a recipe node when @type is a list")
		}
	})

	t.Run("richer node wins", func(t *testing.T) {
		roots := SalvageJSON(`[
			{"@type": "Recipe", "name": "Teaser"},
			{"@type": "Recipe", "name": "Full", "recipeIngredient": ["a", "b", "c"]}
		]`)
		node, ok := BestRecipeNode(roots)
		if !ok {
			t.Fatal("expected a recipe node")
		}
		if node["name"] != "Full" {
			t.Errorf("name = %v, want the ingredient-rich node", node["name"])
		}
	})

	t.Run("no recipe", func(t *testing.T) {
		roots := SalvageJSON(`{"@type": "WebSite", "name": "Nope"}`)
		if _, ok := BestRecipeNode(roots); ok {
			t.Fatal("expected no recipe node")
		}
	})
}

func TestMapRecipeNode(t *testing.T) {
	roots := SalvageJSON(`{
		"@type": "Recipe",
		"name": "  Beef &amp; Ale Stew ",
		"description": "Hearty.",
		"image": [
			{"url": "https://site.com/small.jpg", "width": 200, "height": 150},
			{"url": "https://site.com/big.jpg", "width": "1200", "height": "900"}
		],
		"recipeYield": ["4 servings"],
		"keywords": "winter; comfort food, Slow Cooker, stew",
		"recipeCuisine": "British",
		"nutrition": {
			"@type": "NutritionInformation",
			"calories": "450 calories",
			"proteinContent": "32 g",
			"carbohydrateContent": "21 g",
			"fatContent": "18 g"
		},
		"recipeIngredient": ["800g stewing beef", "2 onions", ""],
		"recipeInstructions": [
			{
				"@type": "HowToSection",
				"name": "Prep",
				"itemListElement": [
					{"@type": "HowToStep", "text": "Chop the onions."},
					{"@type": "HowToStep", "text": "Brown the beef.", "image": "https://site.com/brown.jpg"}
				]
			},
			{"@type": "HowToStep", "text": "Simmer for three hours."}
		]
	}`)
	node, ok := BestRecipeNode(roots)
	if !ok {
		t.Fatal("expected a recipe node")
	}

	hit := MapRecipeNode(node)
	rec := hit.Recipe

	if rec.Title != "Beef & Ale Stew" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Image != "https://site.com/big.jpg" {
		t.Errorf("image = %q, want the largest", rec.Image)
	}
	if rec.Servings != 4 {
		t.Errorf("servings = %d, want 4", rec.Servings)
	}
	if len(rec.Tags) != 3 {
		t.Fatalf("tags = %v, want 3 after truncation", rec.Tags)
	}
	for _, tag := range rec.Tags {
		if tag != strings.ToLower(tag) {
			t.Errorf("tag %q not lowercased", tag)
		}
	}
	if rec.Nutrition == nil {
		t.Fatal("expected nutrition")
	}
	if rec.Nutrition.Calories != 450 || rec.Nutrition.Protein != 32 {
		t.Errorf("nutrition = %+v", rec.Nutrition)
	}
	if rec.NutritionMode != NutritionManual {
		t.Errorf("nutrition mode = %q, want manual", rec.NutritionMode)
	}
	if len(rec.Instructions) != 3 {
		t.Fatalf("instructions = %d, want sections flattened to 3", len(rec.Instructions))
	}
	if rec.Instructions[0].Text != "Chop the onions." {
		t.Errorf("step 0 = %q", rec.Instructions[0].Text)
	}
	if rec.Instructions[1].MediaURL != "https://site.com/brown.jpg" {
		t.Errorf("step 1 media = %q", rec.Instructions[1].MediaURL)
	}
	if rec.Instructions[1].MediaType != "image" {
		t.Errorf("step 1 media type = %q", rec.Instructions[1].MediaType)
	}
	if len(hit.RecipeIngredient) != 2 {
		t.Errorf("ingredients = %v, empty entries must be dropped", hit.RecipeIngredient)
	}
	if len(hit.Images) != 2 {
		t.Errorf("image candidates = %d, want 2", len(hit.Images))
	}
}

func TestMapRecipeNodePartialNutritionDropped(t *testing.T) {
	roots := SalvageJSON(`{
		"@type": "Recipe",
		"name": "Soup",
		"recipeInstructions": "Boil everything.",
		"nutrition": {"calories": "120 calories", "proteinContent": "4 g"}
	}`)
	node, _ := BestRecipeNode(roots)
	hit := MapRecipeNode(node)

	if hit.Recipe.Nutrition != nil {
		t.Errorf("nutrition = %+v, partial blocks must be dropped", hit.Recipe.Nutrition)
	}
	if hit.Recipe.NutritionMode != NutritionAuto {
		t.Errorf("nutrition mode = %q, want auto", hit.Recipe.NutritionMode)
	}
	if len(hit.Recipe.Instructions) != 1 {
		t.Errorf("instructions = %d, plain string must yield one step", len(hit.Recipe.Instructions))
	}
}

func TestMapRecipeNodeOutOfRangeServings(t *testing.T) {
	for _, yield := range []string{"0", "2500", "lots"} {
		roots := SalvageJSON(`{"@type":"Recipe","name":"X","recipeYield":"` + yield + `"}`)
		node, _ := BestRecipeNode(roots)
		hit := MapRecipeNode(node)
		if hit.Recipe.Servings != 1 {
			t.Errorf("yield %q: servings = %d, want default 1", yield, hit.Recipe.Servings)
		}
	}
}

func TestCollectTagsStripsSchemaPrefix(t *testing.T) {
	roots := SalvageJSON(`{
		"@type": "Recipe",
		"name": "X",
		"suitableForDiet": ["https://schema.org/GlutenFreeDiet"]
	}`)
	node, _ := BestRecipeNode(roots)
	hit := MapRecipeNode(node)
	if len(hit.Recipe.Tags) != 1 || hit.Recipe.Tags[0] != "glutenfreediet" {
		t.Errorf("tags = %v, want schema prefix stripped", hit.Recipe.Tags)
	}
}

func TestExtractJSONLD(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">{"@type":"WebSite","name":"Site"}</script>
		<script type="application/ld+json">
			{"@type":"Recipe","name":"Pancakes","recipeIngredient":["2 eggs"],"recipeInstructions":["Mix.","Fry."]}
		</script>
	</head><body></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	hit, ok := ExtractJSONLD(doc)
	if !ok {
		t.Fatal("expected a structured hit")
	}
	if hit.Recipe.Title != "Pancakes" {
		t.Errorf("title = %q", hit.Recipe.Title)
	}
	if len(hit.Recipe.Instructions) != 2 {
		t.Errorf("instructions = %d, want 2", len(hit.Recipe.Instructions))
	}
}

func TestExtractJSONLDNoRecipe(t *testing.T) {
	page := `<html><head><script type="application/ld+json">{"@type":"WebSite"}</script></head></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ExtractJSONLD(doc); ok {
		t.Fatal("expected no hit")
	}
}
