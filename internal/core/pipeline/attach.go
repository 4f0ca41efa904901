package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"
)

const attachToolName = "assign_ingredients"

// attachToolSchema maps flat ingredient lines onto instruction steps.
// stepIndex is zero-based in the schema even though the prompt numbers the
// steps from 1; the prompt states the offset explicitly.
var attachToolSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "assignments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "stepIndex": {"type": "integer", "minimum": 0},
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
        "required": ["stepIndex", "ingredients"]
      }
    }
  },
  "required": ["assignments"]
}`)

const attachSystemPrompt = `You assign a recipe's ingredient list to the steps where each ingredient is used.
Rules:
- Use the assign_ingredients function for your answer.
- The steps below are numbered from 1 for readability, but stepIndex in your answer is ZERO-BASED: step 1 is stepIndex 0.
- Assign each ingredient to every step where it is actively used. An ingredient may appear in more than one step.
- Carry over the quantity and measurement from the ingredient list. If a step uses only part of an amount, keep the full amount on the first use.
- When a step reuses something produced by an earlier step (e.g. "the cooked rice"), report it with isPrepared=true, a descriptive name, and no quantity or measurement.
- Do not invent ingredients that are not in the list.`

type attachResponse struct {
	Assignments []struct {
		StepIndex   int             `json:"stepIndex"`
		Ingredients json.RawMessage `json:"ingredients"`
	} `json:"assignments"`
}

type attachMention struct {
	Name        string      `json:"name"`
	Quantity    interface{} `json:"quantity"`
	Measurement *string     `json:"measurement"`
	IsPrepared  bool        `json:"isPrepared"`
}

// AttachIngredients distributes a flat ingredient list (as extracted from
// structured data) across the recipe's instruction steps. Best effort: any
// model or parse failure leaves the recipe unchanged.
func (s *Structurer) AttachIngredients(ctx context.Context, rec *ImportedRecipe, flat []string) *ImportedRecipe {
	flat = trimNonEmpty(flat)
	if len(flat) == 0 || len(rec.Instructions) == 0 {
		return rec
	}

	var b strings.Builder
	b.WriteString("Ingredient list:\n")
	for _, line := range flat {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nSteps:\n")
	for i, inst := range rec.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, inst.Text)
	}

	result, err := s.provider.Chat(ctx,
		[]provider.Message{
			provider.TextMessage(provider.RoleSystem, attachSystemPrompt),
			provider.TextMessage(provider.RoleUser, b.String()),
		},
		provider.ChatOptions{
			Model:       s.tinyModel,
			Temperature: 0,
			MaxTokens:   s.maxTokens,
			Tools: []provider.Tool{{
				Type: "function",
				Function: provider.ToolFunction{
					Name:        attachToolName,
					Description: "Report which ingredients each step uses.",
					Parameters:  attachToolSchema,
				},
			}},
			ToolChoice: provider.ForceTool(attachToolName),
		})
	if err != nil {
		common.LogWarn("ingredient attachment skipped",
			zap.Error(err),
			zap.String("title", rec.Title),
		)
		return rec
	}

	args, ok := result.FirstToolCall(attachToolName)
	if !ok {
		common.LogWarn("ingredient attachment skipped",
			zap.Error(common.ErrNoStructuredResponse),
			zap.String("title", rec.Title),
		)
		return rec
	}

	applyAssignments(rec, args)
	NormalizeRecipe(rec)
	return rec
}

// applyAssignments parses the tool arguments and merges valid assignments
// into the recipe. Malformed entries are dropped individually; a whole-body
// parse failure drops everything.
func applyAssignments(rec *ImportedRecipe, args string) {
	var parsed attachResponse
	if err := common.ParseJSON(args, &parsed); err != nil {
		common.LogWarn("ingredient assignments unparseable", zap.Error(err))
		return
	}

	for _, a := range parsed.Assignments {
		if a.StepIndex < 0 || a.StepIndex >= len(rec.Instructions) {
			continue
		}
		var mentions []attachMention
		if err := common.ParseJSONBytes(a.Ingredients, &mentions); err != nil {
			continue
		}

		step := &rec.Instructions[a.StepIndex]
		for _, m := range mentions {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				continue
			}
			if hasMention(step.Ingredients, name, m.IsPrepared) {
				continue
			}
			mention := IngredientMention{
				Name:        name,
				DisplayName: name,
				IsPrepared:  m.IsPrepared,
			}
			if !m.IsPrepared {
				if m.Measurement != nil {
					mention.Measurement = strings.TrimSpace(*m.Measurement)
				}
				mention.Quantity = quantityFromLLM(m.Quantity)
			}
			step.Ingredients = append(step.Ingredients, mention)
		}
	}
}

func hasMention(mentions []IngredientMention, name string, isPrepared bool) bool {
	for _, m := range mentions {
		if m.IsPrepared == isPrepared && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func trimNonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
