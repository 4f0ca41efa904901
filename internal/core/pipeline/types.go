// Package pipeline implements the recipe import pipeline: a fallback cascade
// that turns a URL, pasted text or photographed recipe images into a
// structured, validated recipe.
//
// For URL input the cascade is: streaming JSON-LD sniff, full-page fetch with
// structured-data extraction, heuristic DOM mining, and finally LLM
// structuring of whatever text the heuristics recovered. Text and image
// inputs go straight to the LLM path. Every value produced here is a
// transient in-memory object for the duration of one import job.
package pipeline

// ImageSource ranks where an image candidate came from. Structured data is
// trusted over Open Graph tags, which are trusted over inline DOM markers.
type ImageSource int

const (
	SourceMarker ImageSource = iota + 1
	SourceOpenGraph
	SourceJSONLD
)

// ImageCandidate is one competing image URL discovered by any extractor.
// Never mutated after creation.
type ImageCandidate struct {
	URL    string
	Width  int
	Height int
	Source ImageSource
	// Order preserves document position for marker candidates.
	Order int
}

// ParsedQuantity keeps the author-facing quantity text alongside a
// best-effort numeric value. Numeric is nil when nothing numeric could be
// extracted ("to taste").
type ParsedQuantity struct {
	Text    string   `json:"text"`
	Numeric *float64 `json:"numeric,omitempty"`
}

// IngredientMention is one ingredient reference inside an instruction step.
// IsPrepared marks a reference to an ingredient already introduced in an
// earlier step; such mentions never carry a quantity or measurement.
type IngredientMention struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName,omitempty"`
	Quantity    *ParsedQuantity `json:"quantity,omitempty"`
	Measurement string          `json:"measurement,omitempty"`
	IsPrepared  bool            `json:"isPrepared,omitempty"`
}

// InstructionDraft is one ordered instruction step. Order is significant: it
// is the unit ingredients are attached against.
type InstructionDraft struct {
	Text        string              `json:"text"`
	MediaURL    string              `json:"mediaUrl,omitempty"`
	MediaType   string              `json:"mediaType,omitempty"` // "image" or "video"
	Hint        string              `json:"hint,omitempty"`
	Ingredients []IngredientMention `json:"ingredients"`
}

// Nutrition holds per-serving values. It is all-or-nothing: either every
// field is present and within [0, 10000), or the whole block is dropped.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Nutrition modes.
const (
	NutritionAuto   = "auto"
	NutritionManual = "manual"
	NutritionNone   = "none"
)

// ImportedRecipe is the pipeline's output contract.
//
// Invariants (enforced by NormalizeRecipe):
//   - Tags: at most 3, lowercase, unique.
//   - Nutrition: fully populated or nil, never partial.
//   - Servings: positive integer, defaulting to 1 when unknown or outside
//     (0, 1000).
//   - Instructions may have empty ingredient lists.
type ImportedRecipe struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Image         string             `json:"image,omitempty"`
	Tags          []string           `json:"tags"`
	Servings      int                `json:"servings"`
	NutritionMode string             `json:"nutritionMode"`
	Nutrition     *Nutrition         `json:"nutrition,omitempty"`
	Instructions  []InstructionDraft `json:"instructions"`
}

// StructuredHit is a successful structured-data extraction: the mapped
// recipe plus the raw flat recipeIngredient list, which still needs to be
// attached to instruction steps in a second pass.
type StructuredHit struct {
	Recipe           *ImportedRecipe
	RecipeIngredient []string
	Images           []ImageCandidate
}

// HeuristicResult is a best-effort DOM extraction with a [0,1] confidence
// estimate and the reconstructed text handed to the LLM fallback.
type HeuristicResult struct {
	Recipe        *ImportedRecipe
	Confidence    float64
	ExtractedText string
	Candidates    []ImageCandidate
	// Ingredients is the flat list the heuristics recovered; it reaches the
	// LLM through ExtractedText.
	Ingredients []string
}

// InputType selects the import path.
type InputType string

const (
	InputURL   InputType = "url"
	InputText  InputType = "text"
	InputImage InputType = "image"
)
