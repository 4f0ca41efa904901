package pipeline

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonWalker walks a decoded JSON value lazily with an explicit worklist,
// yielding every object and array in the tree. Restartable per call: each
// newJSONWalker starts from the root.
type jsonWalker struct {
	stack []interface{}
}

func newJSONWalker(root interface{}) *jsonWalker {
	return &jsonWalker{stack: []interface{}{root}}
}

// Next returns the next node in depth-first order, or false when exhausted.
func (w *jsonWalker) Next() (interface{}, bool) {
	for len(w.stack) > 0 {
		n := len(w.stack) - 1
		node := w.stack[n]
		w.stack = w.stack[:n]

		switch v := node.(type) {
		case map[string]interface{}:
			for _, child := range v {
				w.stack = append(w.stack, child)
			}
			return v, true
		case []interface{}:
			for i := len(v) - 1; i >= 0; i-- {
				w.stack = append(w.stack, v[i])
			}
			return v, true
		}
	}
	return nil, false
}

var (
	htmlCommentOpenRe  = regexp.MustCompile(`(?s)^\s*<!--`)
	htmlCommentCloseRe = regexp.MustCompile(`(?s)-->\s*$`)
	objectBoundaryRe   = regexp.MustCompile(`\}\s*\{`)
)

// SalvageJSON parses raw as JSON, recovering from the malformed shapes seen
// in the wild: payloads wrapped in HTML comment markers and multiple JSON
// objects concatenated without a separating array. Returns every value that
// parsed; nil when nothing did.
func SalvageJSON(raw string) []interface{} {
	raw = strings.TrimSpace(raw)
	raw = htmlCommentOpenRe.ReplaceAllString(raw, "")
	raw = htmlCommentCloseRe.ReplaceAllString(raw, "")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var whole interface{}
	if err := json.Unmarshal([]byte(raw), &whole); err == nil {
		return []interface{}{whole}
	}

	// Concatenated objects: split on the }{ boundary and re-balance the
	// braces we cut away, keeping whichever fragments parse.
	parts := objectBoundaryRe.Split(raw, -1)
	if len(parts) < 2 {
		return nil
	}
	var out []interface{}
	for i, part := range parts {
		if i > 0 {
			part = "{" + part
		}
		if i < len(parts)-1 {
			part = part + "}"
		}
		var v interface{}
		if err := json.Unmarshal([]byte(part), &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// isRecipeNode reports whether node carries a schema.org Recipe @type, which
// may be a string or a list of strings.
func isRecipeNode(node map[string]interface{}) bool {
	typeVal, ok := node["@type"]
	if !ok {
		return false
	}
	switch v := typeVal.(type) {
	case string:
		return strings.EqualFold(v, "recipe")
	case []interface{}:
		for _, t := range v {
			if s, ok := t.(string); ok && strings.EqualFold(s, "recipe") {
				return true
			}
		}
	}
	return false
}

// scoreRecipeNode ranks competing Recipe nodes: ingredient-rich nodes beat
// step-rich ones, with name and image as tie-breakers.
func scoreRecipeNode(node map[string]interface{}) int {
	score := 0
	if arr, ok := node["recipeIngredient"].([]interface{}); ok {
		score += 2 * len(arr)
	}
	score += len(flattenInstructionNodes(node["recipeInstructions"]))
	if s := stringField(node, "name"); s != "" {
		score++
	}
	if _, ok := node["image"]; ok {
		score++
	}
	return score
}

// BestRecipeNode walks every parsed root (recipe data may hide inside
// @graph arrays or arbitrarily deep inside unrelated structures) and returns
// the highest-scoring Recipe node.
func BestRecipeNode(roots []interface{}) (map[string]interface{}, bool) {
	var best map[string]interface{}
	bestScore := -1
	for _, root := range roots {
		walker := newJSONWalker(root)
		for {
			node, ok := walker.Next()
			if !ok {
				break
			}
			obj, ok := node.(map[string]interface{})
			if !ok || !isRecipeNode(obj) {
				continue
			}
			if score := scoreRecipeNode(obj); score > bestScore {
				best = obj
				bestScore = score
			}
		}
	}
	return best, best != nil
}

// ExtractJSONLD scans a parsed document for embedded ld+json Recipe
// metadata, salvaging malformed blocks, and maps the best candidate node.
func ExtractJSONLD(doc *goquery.Document) (*StructuredHit, bool) {
	var roots []interface{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		roots = append(roots, SalvageJSON(sel.Text())...)
	})
	if len(roots) == 0 {
		return nil, false
	}

	node, ok := BestRecipeNode(roots)
	if !ok {
		return nil, false
	}
	return MapRecipeNode(node), true
}

// MapRecipeNode maps one schema.org Recipe node onto the pipeline's output
// contract. The raw flat recipeIngredient list is returned alongside the
// recipe: structured instruction text never carries per-ingredient amounts,
// so attachment is always a required second pass when the list exists.
func MapRecipeNode(node map[string]interface{}) *StructuredHit {
	hit := &StructuredHit{Recipe: &ImportedRecipe{NutritionMode: NutritionAuto}}
	rec := hit.Recipe

	rec.Title = html.UnescapeString(stringField(node, "name"))
	rec.Description = html.UnescapeString(stringField(node, "description"))

	candidates := imageCandidates(node["image"])
	hit.Images = candidates
	if len(candidates) > 0 {
		rec.Image = bestJSONLDImage(candidates)
	}

	rec.Servings = coerceServings(node["recipeYield"])

	rec.Instructions = flattenInstructionNodes(node["recipeInstructions"])

	rec.Tags = collectTags(node)

	if n, ok := mapNutrition(node["nutrition"]); ok {
		rec.Nutrition = n
		rec.NutritionMode = NutritionManual
	}

	if arr, ok := node["recipeIngredient"].([]interface{}); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				s = strings.TrimSpace(html.UnescapeString(s))
				if s != "" {
					hit.RecipeIngredient = append(hit.RecipeIngredient, s)
				}
			}
		}
	}

	NormalizeRecipe(rec)
	return hit
}

func stringField(node map[string]interface{}, key string) string {
	if s, ok := node[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// imageCandidates resolves a JSON-LD image field, which may be a string, an
// object with url/width/height, or an array of either.
func imageCandidates(v interface{}) []ImageCandidate {
	var out []ImageCandidate
	switch img := v.(type) {
	case string:
		if img != "" {
			out = append(out, ImageCandidate{URL: img, Source: SourceJSONLD})
		}
	case map[string]interface{}:
		url := stringField(img, "url")
		if url == "" {
			url = stringField(img, "contentUrl")
		}
		if url == "" {
			// Some schemas nest the image object one level deeper.
			return imageCandidates(img["image"])
		}
		c := ImageCandidate{URL: url, Source: SourceJSONLD}
		if w, ok := ParseQuantityValue(img["width"]); ok {
			c.Width = int(w)
		}
		if h, ok := ParseQuantityValue(img["height"]); ok {
			c.Height = int(h)
		}
		out = append(out, c)
	case []interface{}:
		for _, item := range img {
			out = append(out, imageCandidates(item)...)
		}
	}
	return out
}

// bestJSONLDImage scores candidates by area, falling back to 1 when
// dimensions are missing, and returns the best URL.
func bestJSONLDImage(candidates []ImageCandidate) string {
	best := ""
	bestScore := -1
	for _, c := range candidates {
		score := c.Width * c.Height
		if score == 0 {
			score = 1
		}
		if score > bestScore {
			best = c.URL
			bestScore = score
		}
	}
	return best
}

func coerceServings(v interface{}) int {
	if arr, ok := v.([]interface{}); ok && len(arr) > 0 {
		v = arr[0]
	}
	n, ok := ParseQuantityValue(v)
	if !ok {
		return 1
	}
	servings := int(n)
	if servings <= 0 || servings >= 1000 {
		return 1
	}
	return servings
}

// flattenInstructionNodes resolves recipeInstructions, which may be a plain
// string, an array of strings, an array of step objects, or contain
// HowToSection objects whose itemListElement holds the real steps.
func flattenInstructionNodes(v interface{}) []InstructionDraft {
	var out []InstructionDraft

	var add func(entry interface{})
	add = func(entry interface{}) {
		switch step := entry.(type) {
		case string:
			if text := strings.TrimSpace(html.UnescapeString(step)); text != "" {
				out = append(out, InstructionDraft{Text: text, Ingredients: []IngredientMention{}})
			}
		case []interface{}:
			for _, item := range step {
				add(item)
			}
		case map[string]interface{}:
			if typeVal, ok := step["@type"].(string); ok && strings.Contains(typeVal, "Section") {
				if items, ok := step["itemListElement"].([]interface{}); ok {
					for _, item := range items {
						add(item)
					}
				}
				return
			}
			text := stringField(step, "text")
			if text == "" {
				text = stringField(step, "name")
			}
			text = strings.TrimSpace(html.UnescapeString(text))
			if text == "" {
				return
			}
			draft := InstructionDraft{Text: text, Ingredients: []IngredientMention{}}
			if imgs := imageCandidates(step["image"]); len(imgs) > 0 {
				draft.MediaURL = bestJSONLDImage(imgs)
				draft.MediaType = "image"
			}
			out = append(out, draft)
		}
	}

	add(v)
	return out
}

// collectTags merges keywords, recipeCuisine and suitableForDiet into one
// lowercase, deduplicated tag list. Truncation to three happens in
// NormalizeRecipe.
func collectTags(node map[string]interface{}) []string {
	var tags []string

	addString := func(s string) {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "https://schema.org/")
		s = strings.TrimPrefix(s, "http://schema.org/")
		if s != "" {
			tags = append(tags, s)
		}
	}
	addValue := func(v interface{}) {
		switch t := v.(type) {
		case string:
			for _, part := range strings.FieldsFunc(t, func(r rune) bool { return r == ';' || r == ',' }) {
				addString(part)
			}
		case []interface{}:
			for _, item := range t {
				if s, ok := item.(string); ok {
					addString(s)
				}
			}
		}
	}

	addValue(node["keywords"])
	addValue(node["recipeCuisine"])
	addValue(node["suitableForDiet"])
	return tags
}

// mapNutrition coerces a schema.org NutritionInformation node. Values arrive
// as strings with units ("240 calories", "8 g"); each is numeric-coerced.
// Nutrition is all-or-nothing: any missing or out-of-range field drops the
// whole block.
func mapNutrition(v interface{}) (*Nutrition, bool) {
	node, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}

	fields := [4]string{"calories", "proteinContent", "carbohydrateContent", "fatContent"}
	var values [4]float64
	for i, key := range fields {
		raw, ok := node[key]
		if !ok {
			return nil, false
		}
		n, ok := ParseQuantityValue(raw)
		if !ok || n < 0 || n >= 10000 {
			return nil, false
		}
		values[i] = n
	}

	return &Nutrition{
		Calories: values[0],
		Protein:  values[1],
		Carbs:    values[2],
		Fat:      values[3],
	}, true
}
