package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	aiimage "recipe-importer/internal/core/ai/image"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"
)

// ImportRequest is one import job. Exactly one input field is meaningful,
// selected by Type.
type ImportRequest struct {
	Type   InputType `json:"type"`
	URL    string    `json:"url,omitempty"`
	Text   string    `json:"text,omitempty"`
	Images []string  `json:"images,omitempty"` // base64, optionally data-URI prefixed
}

// Pipeline orchestrates the import cascade. Each stage is recoverable: a
// failed sniff falls through to the full fetch, a missed structured-data
// extraction falls through to the heuristics, and low-confidence heuristics
// escalate to the LLM. Only invalid input and a fully exhausted cascade
// surface as errors.
type Pipeline struct {
	cfg        *config.Config
	fetcher    documentFetcher
	structurer *Structurer
	images     *aiimage.Processor
	selector   ImageSelector
	// sniffClient overrides the sniffer's HTTP client; nil means the default.
	sniffClient *http.Client
}

// documentFetcher downloads and parses a page. Satisfied by *Fetcher.
type documentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// New wires a pipeline from configuration and an already-constructed
// structurer.
func New(cfg *config.Config, structurer *Structurer) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		fetcher: NewFetcher(
			cfg.Pipeline.FetchTimeout,
			cfg.Pipeline.FetchRetries,
			cfg.Pipeline.FetchMaxBackoff,
			cfg.Pipeline.UserAgent,
		),
		structurer: structurer,
		images:     aiimage.NewProcessor(cfg.Image.MaxSizeBytes),
		selector: ImageSelector{
			MinMainImageDim:    cfg.Pipeline.MinMainImageDim,
			MinStepImageWidth:  cfg.Pipeline.MinStepImageWidth,
			MinStepImageHeight: cfg.Pipeline.MinStepImageHeight,
		},
	}
}

// Import runs the cascade for one request and returns a normalized recipe.
func (p *Pipeline) Import(ctx context.Context, req ImportRequest) (*ImportedRecipe, error) {
	switch req.Type {
	case InputURL:
		if strings.TrimSpace(req.URL) == "" {
			return nil, common.ErrMissingInput
		}
		return p.importURL(ctx, req.URL)
	case InputText:
		if strings.TrimSpace(req.Text) == "" {
			return nil, common.ErrMissingInput
		}
		return p.importText(ctx, req.Text)
	case InputImage:
		if len(req.Images) == 0 {
			return nil, common.ErrMissingInput
		}
		return p.importImages(ctx, req.Images)
	default:
		return nil, fmt.Errorf("%w: unknown input type %q", common.ErrMissingInput, req.Type)
	}
}

// importURL runs the URL cascade: streaming sniff, full fetch with
// structured-data extraction, heuristics, LLM escalation.
func (p *Pipeline) importURL(ctx context.Context, rawURL string) (*ImportedRecipe, error) {
	validated, err := ValidateImportURL(rawURL)
	if err != nil {
		return nil, err
	}

	// Stage 1: bounded streaming sniff. A hit here avoids downloading and
	// parsing the full page.
	hit, err := SniffJSONLD(ctx, validated, SniffOptions{
		ByteLimit: p.cfg.Pipeline.SniffByteLimit,
		TimeLimit: p.cfg.Pipeline.SniffTimeLimit,
		UserAgent: p.cfg.Pipeline.UserAgent,
		Client:    p.sniffClient,
	})
	if err == nil && hit != nil {
		common.LogInfo("import resolved by streaming sniff", zap.String("url", validated))
		rec := p.structurer.AttachIngredients(ctx, hit.Recipe, hit.RecipeIngredient)
		return p.finalize(rec, hit.Images), nil
	}
	common.LogDebug("streaming sniff missed", zap.String("url", validated), zap.Error(err))

	// Stage 2: full fetch. The document is needed by both the structured and
	// the heuristic paths; extract JSON-LD before CleanDocument strips the
	// scripts.
	doc, err := p.fetcher.FetchDocument(ctx, validated)
	if err != nil {
		return nil, err
	}

	if hit, ok := ExtractJSONLD(doc); ok {
		common.LogInfo("import resolved by structured data", zap.String("url", validated))
		rec := p.structurer.AttachIngredients(ctx, hit.Recipe, hit.RecipeIngredient)
		clean := CleanDocument(doc, validated)
		candidates := append(hit.Images, clean.OGCandidates...)
		candidates = append(candidates, clean.MarkerCandidates...)
		return p.finalize(rec, candidates), nil
	}

	// Stage 3: heuristics over the cleaned document.
	clean := CleanDocument(doc, validated)
	heur := ExtractHeuristic(doc, validated)
	candidates := append(heur.Candidates, clean.OGCandidates...)
	candidates = append(candidates, clean.MarkerCandidates...)

	if heur.Confidence >= p.cfg.Pipeline.AcceptConfidence && len(heur.Recipe.Instructions) >= 2 {
		common.LogInfo("import resolved by heuristics",
			zap.String("url", validated),
			zap.Float64("confidence", heur.Confidence),
		)
		return p.finalize(heur.Recipe, candidates), nil
	}

	// Stage 4: LLM over the recovered text. Prefer the heuristic
	// reconstruction; it is denser than the raw body text.
	text := heur.ExtractedText
	if strings.TrimSpace(text) == "" {
		text = clean.Text
	}
	common.LogInfo("import escalated to model",
		zap.String("url", validated),
		zap.Float64("confidence", heur.Confidence),
	)
	rec, err := p.structurer.StructureTextTiny(ctx, text, validated)
	if err != nil {
		return nil, err
	}
	return p.finalize(rec, candidates), nil
}

// importText structures pasted text directly.
func (p *Pipeline) importText(ctx context.Context, text string) (*ImportedRecipe, error) {
	rec, err := p.structurer.StructureTextTiny(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return p.finalize(rec, nil), nil
}

// importImages transcribes photographed recipe pages and structures the
// transcription.
func (p *Pipeline) importImages(ctx context.Context, images []string) (*ImportedRecipe, error) {
	if max := p.cfg.Image.MaxCount; max > 0 && len(images) > max {
		return nil, common.NewValidationError(
			fmt.Sprintf("too many images: %d (maximum %d)", len(images), max))
	}

	dataURIs := make([]string, 0, len(images))
	for i, img := range images {
		uri, err := p.images.Normalize(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		dataURIs = append(dataURIs, uri)
	}

	text, err := p.structurer.TranscribeImages(ctx, dataURIs)
	if err != nil {
		return nil, err
	}
	common.LogDebug("images transcribed", zap.Int("chars", len(text)))

	rec, err := p.structurer.StructureTextTiny(ctx, text, "photographed recipe")
	if err != nil {
		return nil, err
	}
	return p.finalize(rec, nil), nil
}

// finalize applies normalization and image selection. A main image chosen by
// an earlier stage wins; otherwise the best candidate is promoted.
func (p *Pipeline) finalize(rec *ImportedRecipe, candidates []ImageCandidate) *ImportedRecipe {
	NormalizeRecipe(rec)
	candidates = dedupeCandidates(candidates)
	if rec.Image == "" {
		rec.Image = p.selector.ChooseMainImage(candidates)
	}
	p.selector.AttachStepImagesIfMissing(rec, candidates, rec.Image)
	return rec
}
