package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Pattern tables driving the DOM heuristics. Kept together so the keyword
// lists and thresholds can be reviewed as a group.
var (
	ingredientHeadingRe  = regexp.MustCompile(`(?i)ingredient`)
	instructionHeadingRe = regexp.MustCompile(`(?i)instruction|method|direction|step`)

	// A "quantity-looking line" starts with a number, fraction or unicode
	// vulgar fraction, optionally followed by a unit word.
	quantityLineRe = regexp.MustCompile(`^\s*(?:\d+\s+\d+\s*/\s*\d+|\d+\s*/\s*\d+|\d+(?:[.,]\d+)?|[¼½¾⅓⅔⅕⅖⅗⅘⅙⅚⅐⅑⅒⅛⅜⅝⅞])\s*(?:[a-zA-Z]+\b)?`)

	// Step text split points: newlines, sentence boundaries (period
	// followed by a capital), and leading step numbers.
	sentenceBoundaryRe = regexp.MustCompile(`\.\s+(?:[A-Z])`)
	leadingStepNumRe   = regexp.MustCompile(`(?i)^\s*(?:step\s*)?\d+\s*[.):]\s*`)
)

// Heuristic extraction limits.
const (
	maxSiblingWalk     = 12
	maxFallbackParas   = 8
	minFallbackParaLen = 20
	maxHeuristicSteps  = 12
)

// Confidence weights. Scores are additive and clamped to 1.
const (
	strongListScore = 0.5 // three or more items
	weakListScore   = 0.3 // exactly two items
	titleScore      = 0.2
)

// ExtractHeuristic mines a script-stripped document for an ingredient list
// and a step list using keyword and shape heuristics. It always returns a
// result; Confidence tells the orchestrator whether to trust it or escalate
// the extracted text to the LLM.
func ExtractHeuristic(doc *goquery.Document, baseURL string) *HeuristicResult {
	title := heuristicTitle(doc)
	ingredients := heuristicIngredients(doc)
	steps := heuristicSteps(doc)

	ogCandidates := CollectOpenGraphImages(doc, baseURL)

	recipe := &ImportedRecipe{
		Title:         title,
		Description:   metaContent(doc, "og:description"),
		NutritionMode: NutritionAuto,
		Servings:      1,
	}
	for _, step := range steps {
		recipe.Instructions = append(recipe.Instructions, InstructionDraft{
			Text:        step,
			Ingredients: []IngredientMention{},
		})
	}
	recipe.Image = ImageSelector{}.ChooseMainImage(ogCandidates)
	NormalizeRecipe(recipe)

	confidence := listScore(len(ingredients)) + listScore(len(steps))
	if len(title) > 3 {
		confidence += titleScore
	}
	if confidence > 1 {
		confidence = 1
	}

	return &HeuristicResult{
		Recipe:        recipe,
		Confidence:    confidence,
		ExtractedText: buildExtractedText(title, ingredients, steps),
		Candidates:    ogCandidates,
		Ingredients:   ingredients,
	}
}

func listScore(n int) float64 {
	switch {
	case n >= 3:
		return strongListScore
	case n >= 2:
		return weakListScore
	default:
		return 0
	}
}

func heuristicTitle(doc *goquery.Document) string {
	if h1 := normText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return metaContent(doc, "og:title")
}

func metaContent(doc *goquery.Document, property string) string {
	if v, ok := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).Attr("content"); ok {
		return normText(v)
	}
	if v, ok := doc.Find(fmt.Sprintf(`meta[name=%q]`, property)).Attr("content"); ok {
		return normText(v)
	}
	return ""
}

// heuristicIngredients looks for a heading naming ingredients and takes the
// first following list with at least two items. Failing that, it scans every
// list on the page and keeps the one with the most quantity-looking lines.
func heuristicIngredients(doc *goquery.Document) []string {
	var items []string
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !ingredientHeadingRe.MatchString(heading.Text()) {
			return true
		}
		if list := followingList(heading); list != nil {
			if found := listItems(list); len(found) >= 2 {
				items = found
				return false
			}
		}
		return true
	})
	if len(items) >= 2 {
		return items
	}

	// Shape-based fallback: the biggest list that mostly looks like
	// quantities.
	best := 0
	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		found := listItems(list)
		if len(found) < 2 || len(found) <= best {
			return
		}
		matching := 0
		for _, item := range found {
			if quantityLineRe.MatchString(item) {
				matching++
			}
		}
		needed := len(found) * 2 / 5
		if needed < 2 {
			needed = 2
		}
		if matching >= needed {
			items = found
			best = len(found)
		}
	})
	return items
}

// followingList finds the first ul/ol after a heading, checking each of the
// next siblings and their descendants.
func followingList(heading *goquery.Selection) *goquery.Selection {
	sibling := heading.Next()
	for i := 0; i < maxSiblingWalk && sibling.Length() > 0; i++ {
		if sibling.Is("ul, ol") {
			return sibling
		}
		if nested := sibling.Find("ul, ol").First(); nested.Length() > 0 {
			return nested
		}
		sibling = sibling.Next()
	}
	return nil
}

func listItems(list *goquery.Selection) []string {
	var out []string
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := normText(li.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// heuristicSteps prefers an ordered list after an instruction-like heading,
// then paragraphs following such a heading, then the page's first ordered
// list, then the first long paragraphs.
func heuristicSteps(doc *goquery.Document) []string {
	var steps []string

	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !instructionHeadingRe.MatchString(heading.Text()) {
			return true
		}
		if list := followingList(heading); list != nil && list.Is("ol") {
			if found := listItems(list); len(found) > 0 {
				steps = found
				return false
			}
		}
		// No ordered list: collect paragraph text from the following
		// siblings until the next heading.
		var parts []string
		sibling := heading.Next()
		for i := 0; i < maxSiblingWalk && sibling.Length() > 0; i++ {
			if sibling.Is("h1, h2, h3, h4, h5, h6") {
				break
			}
			if sibling.Is("p") {
				if t := normText(sibling.Text()); t != "" {
					parts = append(parts, t)
				}
			} else {
				sibling.Find("p").Each(func(_ int, p *goquery.Selection) {
					if t := normText(p.Text()); t != "" {
						parts = append(parts, t)
					}
				})
			}
			sibling = sibling.Next()
		}
		if len(parts) > 0 {
			steps = splitSteps(strings.Join(parts, "\n"))
		}
		return len(steps) == 0
	})
	if len(steps) > 0 {
		return capSteps(steps)
	}

	if found := listItems(doc.Find("ol").First()); len(found) > 0 {
		return capSteps(found)
	}

	var parts []string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := normText(p.Text()); len(t) > minFallbackParaLen {
			parts = append(parts, t)
		}
		return len(parts) < maxFallbackParas
	})
	return capSteps(splitSteps(strings.Join(parts, "\n")))
}

// splitSteps breaks a blob of instruction text into individual steps on
// newlines, sentence boundaries and leading step numbers.
func splitSteps(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, piece := range splitSentences(line) {
			piece = leadingStepNumRe.ReplaceAllString(piece, "")
			piece = normText(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

// splitSentences cuts on ". " followed by a capital letter, keeping the
// period with the preceding sentence.
func splitSentences(line string) []string {
	var out []string
	for {
		loc := sentenceBoundaryRe.FindStringIndex(line)
		if loc == nil {
			out = append(out, line)
			return out
		}
		out = append(out, line[:loc[0]+1])
		line = strings.TrimSpace(line[loc[0]+1:])
	}
}

func capSteps(steps []string) []string {
	if len(steps) > maxHeuristicSteps {
		return steps[:maxHeuristicSteps]
	}
	return steps
}

// buildExtractedText reconstructs a readable version of what the heuristics
// found; this is what the LLM fallback receives when confidence is low.
func buildExtractedText(title string, ingredients, steps []string) string {
	if title == "" && len(ingredients) == 0 && len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\n\nIngredients:\n")
	for _, ing := range ingredients {
		b.WriteString("- ")
		b.WriteString(ing)
		b.WriteString("\n")
	}
	b.WriteString("\nInstructions:\n")
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}

func normText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
