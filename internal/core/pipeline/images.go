package pipeline

import (
	"sort"
	"strings"
)

// Default image size floors; overridable per selector.
const (
	defaultMinMainImageDim    = 256
	defaultMinStepImageWidth  = 300
	defaultMinStepImageHeight = 250
)

// URL substrings that mark a candidate as a logo or other non-photo asset.
var logoLikePatterns = []string{
	"logo", "icon", "placeholder", "avatar", "favicon", "sprite", "blank",
}

const logoPenalty = -1000

// ImageSelector scores and deduplicates competing image candidates. The zero
// value uses the default size floors.
type ImageSelector struct {
	MinMainImageDim    int
	MinStepImageWidth  int
	MinStepImageHeight int
}

func (s ImageSelector) minMainDim() int {
	if s.MinMainImageDim > 0 {
		return s.MinMainImageDim
	}
	return defaultMinMainImageDim
}

func (s ImageSelector) minStepSize() (int, int) {
	w, h := s.MinStepImageWidth, s.MinStepImageHeight
	if w <= 0 {
		w = defaultMinStepImageWidth
	}
	if h <= 0 {
		h = defaultMinStepImageHeight
	}
	return w, h
}

// IsLogoLike reports whether the URL looks like a logo, icon or other
// placeholder asset rather than a food photo.
func IsLogoLike(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range logoLikePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func sourceWeight(s ImageSource) float64 {
	switch s {
	case SourceJSONLD:
		return 3
	case SourceOpenGraph:
		return 2
	case SourceMarker:
		return 1
	default:
		return 0
	}
}

func scoreCandidate(c ImageCandidate) float64 {
	score := sourceWeight(c.Source)
	score += float64(c.Width*c.Height) / 1e6
	if IsLogoLike(c.URL) {
		score += logoPenalty
	}
	return score
}

// dedupeCandidates keeps the first occurrence of each URL.
func dedupeCandidates(candidates []ImageCandidate) []ImageCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ChooseMainImage picks the best representative photo among the candidates.
// It prefers the highest-scoring candidate that is not logo-like and has at
// least one dimension above the minimum; when none qualifies it falls back
// to the single highest-scoring candidate regardless, because some image
// beats no image. Returns "" when there are no candidates at all.
func (s ImageSelector) ChooseMainImage(candidates []ImageCandidate) string {
	candidates = dedupeCandidates(candidates)
	if len(candidates) == 0 {
		return ""
	}

	minDim := s.minMainDim()
	bestQualified := -1
	bestQualifiedScore := 0.0
	bestAny := -1
	bestAnyScore := 0.0

	for i, c := range candidates {
		score := scoreCandidate(c)
		if bestAny == -1 || score > bestAnyScore {
			bestAny = i
			bestAnyScore = score
		}
		if IsLogoLike(c.URL) {
			continue
		}
		if c.Width < minDim && c.Height < minDim {
			continue
		}
		if bestQualified == -1 || score > bestQualifiedScore {
			bestQualified = i
			bestQualifiedScore = score
		}
	}

	if bestQualified != -1 {
		return candidates[bestQualified].URL
	}
	return candidates[bestAny].URL
}

// AttachStepImagesIfMissing assigns leftover marker images to instructions
// lacking media, in document order, one per step, stopping when candidates
// run out. Candidates matching the main image, logo-like candidates and
// candidates with known-too-small dimensions are skipped.
func (s ImageSelector) AttachStepImagesIfMissing(recipe *ImportedRecipe, candidates []ImageCandidate, mainImage string) {
	if recipe == nil || len(recipe.Instructions) == 0 {
		return
	}

	minW, minH := s.minStepSize()
	leftover := make([]ImageCandidate, 0, len(candidates))
	for _, c := range dedupeCandidates(candidates) {
		if c.Source != SourceMarker {
			continue
		}
		if c.URL == mainImage || IsLogoLike(c.URL) {
			continue
		}
		// Dimensions are only enforced when known.
		if c.Width > 0 && c.Height > 0 && (c.Width < minW || c.Height < minH) {
			continue
		}
		leftover = append(leftover, c)
	}
	sort.SliceStable(leftover, func(i, j int) bool {
		return leftover[i].Order < leftover[j].Order
	})

	next := 0
	for i := range recipe.Instructions {
		if next >= len(leftover) {
			break
		}
		if recipe.Instructions[i].MediaURL != "" {
			continue
		}
		recipe.Instructions[i].MediaURL = leftover[next].URL
		recipe.Instructions[i].MediaType = "image"
		next++
	}
}
