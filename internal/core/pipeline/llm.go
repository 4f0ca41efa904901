package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"
)

const extractToolName = "extract_recipe"

// extractToolSchema is the forced function contract for recipe structuring.
// The model must answer through this schema; free-form text is rejected.
var extractToolSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "image": {"type": ["string", "null"]},
    "tags": {"type": "array", "items": {"type": "string"}, "maxItems": 3},
    "servings": {"type": ["number", "null"]},
    "nutrition": {
      "type": ["object", "null"],
      "properties": {
        "calories": {"type": "number"},
        "protein": {"type": "number"},
        "carbs": {"type": "number"},
        "fat": {"type": "number"}
      },
      "required": ["calories", "protein", "carbs", "fat"]
    },
    "instructions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "mediaUrl": {"type": ["string", "null"]},
          "mediaType": {"type": ["string", "null"], "enum": ["image", "video", null]},
          "ingredients": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": "string"},
                "quantity": {"type": ["number", "string", "null"]},
                "measurement": {"type": ["string", "null"]},
                "isPrepared": {"type": "boolean"}
              },
              "required": ["name"]
            }
          }
        },
        "required": ["text"]
      }
    }
  },
  "required": ["title", "instructions"]
}`)

const extractSystemPrompt = `You extract recipes from raw text into structured data.
Rules:
- Use the extract_recipe function for your answer. Never answer in prose.
- Preserve [IMAGE: url (WxH)] markers: use their URLs for the recipe image and for step mediaUrl, preferring images that appear early for the main image and images near a step for that step.
- Never fabricate missing fields; use null or empty values instead of guessing.
- The title may be inferred from context if not explicit.
- An ingredient with isPrepared=true refers to the same physical ingredient already introduced in an earlier step (e.g. "cooked rice"); give it only a descriptive name, never a quantity or measurement.
- Do not parse amounts out of isPrepared ingredient names.`

const transcribeImagesPrompt = `Transcribe the recipe in these images into plain text.
Preserve the structure: title, ingredients with amounts, numbered steps, and any servings, times or nutrition information you can read. Transcribe only what is visible; do not invent content.`

// llmRecipe mirrors the tool schema for defensive parsing.
type llmRecipe struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Image        *string  `json:"image"`
	Tags         []string `json:"tags"`
	Servings     *float64 `json:"servings"`
	Nutrition    *struct {
		Calories *float64 `json:"calories"`
		Protein  *float64 `json:"protein"`
		Carbs    *float64 `json:"carbs"`
		Fat      *float64 `json:"fat"`
	} `json:"nutrition"`
	Instructions []struct {
		Text        string  `json:"text"`
		MediaURL    *string `json:"mediaUrl"`
		MediaType   *string `json:"mediaType"`
		Ingredients []struct {
			Name        string      `json:"name"`
			Quantity    interface{} `json:"quantity"`
			Measurement *string     `json:"measurement"`
			IsPrepared  bool        `json:"isPrepared"`
		} `json:"ingredients"`
	} `json:"instructions"`
}

// Structurer adapts raw extracted text (or images) into recipes through a
// forced-tool LLM call. The tiny model serves cost-sensitive paths; the full
// model serves direct high-fidelity structuring.
type Structurer struct {
	provider    provider.Provider
	cache       *cache.Manager
	model       string
	tinyModel   string
	visionModel string
	maxTokens   int
	maxChars    int
}

// NewStructurer creates a structuring adapter.
func NewStructurer(p provider.Provider, c *cache.Manager, model, tinyModel, visionModel string, maxTokens, maxChars int) *Structurer {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Structurer{
		provider:    p,
		cache:       c,
		model:       model,
		tinyModel:   tinyModel,
		visionModel: visionModel,
		maxTokens:   maxTokens,
		maxChars:    maxChars,
	}
}

// StructureText structures text with the full-fidelity model.
func (s *Structurer) StructureText(ctx context.Context, text, sourceHint string) (*ImportedRecipe, error) {
	return s.structure(ctx, s.model, text, sourceHint)
}

// StructureTextTiny structures text with the cheaper model. Used for
// heuristic escalation, plain text input and OCR output.
func (s *Structurer) StructureTextTiny(ctx context.Context, text, sourceHint string) (*ImportedRecipe, error) {
	return s.structure(ctx, s.tinyModel, text, sourceHint)
}

func (s *Structurer) structure(ctx context.Context, model, text, sourceHint string) (*ImportedRecipe, error) {
	text = truncateText(strings.TrimSpace(text), s.maxChars)
	if text == "" {
		return nil, common.ErrNoRecipeFound
	}

	userPrompt := "Recipe text:\n\"\"\"\n" + text + "\n\"\"\""
	if sourceHint != "" {
		userPrompt = "Source: " + sourceHint + "\n\n" + userPrompt
	}

	cacheKey := cache.Key("structure", model, userPrompt)
	args, ok := s.cache.Get(cacheKey)
	if !ok {
		result, err := s.provider.Chat(ctx,
			[]provider.Message{
				provider.TextMessage(provider.RoleSystem, extractSystemPrompt),
				provider.TextMessage(provider.RoleUser, userPrompt),
			},
			provider.ChatOptions{
				Model:       model,
				Temperature: 0,
				MaxTokens:   s.maxTokens,
				Tools: []provider.Tool{{
					Type: "function",
					Function: provider.ToolFunction{
						Name:        extractToolName,
						Description: "Report the recipe extracted from the text.",
						Parameters:  extractToolSchema,
					},
				}},
				ToolChoice: provider.ForceTool(extractToolName),
			})
		if err != nil {
			return nil, err
		}
		args, ok = result.FirstToolCall(extractToolName)
		if !ok {
			return nil, common.ErrNoStructuredResponse
		}
		s.cache.Set(cacheKey, args)
	}

	recipe, err := parseLLMRecipe(args)
	if err != nil {
		common.LogWarn("model produced unparseable recipe arguments",
			zap.Error(err),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("%w: %v", common.ErrNoStructuredResponse, err)
	}
	return recipe, nil
}

// TranscribeImages sends photographed recipe pages to the vision model and
// returns the raw transcription. Structuring is a separate, second call: the
// transcription goes through StructureTextTiny.
func (s *Structurer) TranscribeImages(ctx context.Context, imageDataURIs []string) (string, error) {
	if len(imageDataURIs) == 0 {
		return "", common.ErrMissingInput
	}

	content := []provider.Content{{Type: "text", Text: transcribeImagesPrompt}}
	for _, uri := range imageDataURIs {
		content = append(content, provider.Content{
			Type:     "image_url",
			ImageURL: &provider.ImageURL{URL: uri},
		})
	}

	result, err := s.provider.Chat(ctx,
		[]provider.Message{{Role: provider.RoleUser, Content: content}},
		provider.ChatOptions{
			Model:       s.visionModel,
			Temperature: 0,
			MaxTokens:   s.maxTokens,
		})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(result.Content)
	if text == "" {
		return "", common.ErrNoRecipeFound
	}
	return text, nil
}

// parseLLMRecipe converts raw tool-call arguments into a normalized recipe.
func parseLLMRecipe(args string) (*ImportedRecipe, error) {
	var raw llmRecipe
	if err := common.ParseJSON(args, &raw); err != nil {
		return nil, err
	}

	rec := &ImportedRecipe{
		Title:         raw.Title,
		Description:   raw.Description,
		Tags:          raw.Tags,
		Servings:      1,
		NutritionMode: NutritionAuto,
	}
	if raw.Image != nil {
		rec.Image = strings.TrimSpace(*raw.Image)
	}
	if raw.Servings != nil {
		rec.Servings = int(*raw.Servings)
	}
	if n := raw.Nutrition; n != nil && n.Calories != nil && n.Protein != nil && n.Carbs != nil && n.Fat != nil {
		rec.Nutrition = &Nutrition{
			Calories: *n.Calories,
			Protein:  *n.Protein,
			Carbs:    *n.Carbs,
			Fat:      *n.Fat,
		}
	}

	for _, inst := range raw.Instructions {
		draft := InstructionDraft{
			Text:        inst.Text,
			Ingredients: []IngredientMention{},
		}
		if inst.MediaURL != nil {
			draft.MediaURL = strings.TrimSpace(*inst.MediaURL)
		}
		if inst.MediaType != nil {
			draft.MediaType = *inst.MediaType
		}
		for _, ing := range inst.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" {
				continue
			}
			mention := IngredientMention{
				Name:        name,
				DisplayName: name,
				IsPrepared:  ing.IsPrepared,
			}
			if !ing.IsPrepared {
				if ing.Measurement != nil {
					mention.Measurement = strings.TrimSpace(*ing.Measurement)
				}
				mention.Quantity = quantityFromLLM(ing.Quantity)
			}
			draft.Ingredients = append(draft.Ingredients, mention)
		}
		rec.Instructions = append(rec.Instructions, draft)
	}

	NormalizeRecipe(rec)
	return rec, nil
}

func quantityFromLLM(v interface{}) *ParsedQuantity {
	switch q := v.(type) {
	case nil:
		return nil
	case float64:
		return &ParsedQuantity{
			Text:    strconv.FormatFloat(q, 'f', -1, 64),
			Numeric: &q,
		}
	case json.Number:
		n, err := q.Float64()
		if err != nil {
			return &ParsedQuantity{Text: q.String()}
		}
		return &ParsedQuantity{Text: q.String(), Numeric: &n}
	case string:
		q = strings.TrimSpace(q)
		if q == "" {
			return nil
		}
		pq := &ParsedQuantity{Text: q}
		if n, ok := ParseQuantity(q); ok {
			pq.Numeric = &n
		}
		return pq
	default:
		return nil
	}
}

// truncateText cuts s to at most max bytes, backing off to a rune boundary
// so the model never receives a split multi-byte character.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
