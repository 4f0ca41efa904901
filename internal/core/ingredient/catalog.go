package ingredient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/pkg/common"
)

// Ingredient is one catalog entry. Name is the normalized form.
type Ingredient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store is the catalog backing storage.
type Store interface {
	// FindByName returns the entry whose normalized name matches exactly, or
	// nil when there is none.
	FindByName(ctx context.Context, name string) (*Ingredient, error)
	// SearchCandidates returns entries whose names contain, or are contained
	// by, the given name. Used to bound the fuzzy comparison set.
	SearchCandidates(ctx context.Context, name string) ([]Ingredient, error)
	// Create inserts a new entry and returns it.
	Create(ctx context.Context, name string) (*Ingredient, error)
}

// Catalog resolves free-form ingredient names to catalog entries.
type Catalog struct {
	store     Store
	threshold float64
	dice      *metrics.SorensenDice
}

// NewCatalog creates a catalog resolver. threshold is the minimum Dice
// similarity for a fuzzy match; matches at or below it are rejected.
func NewCatalog(store Store, threshold float64) *Catalog {
	return &Catalog{
		store:     store,
		threshold: threshold,
		dice:      metrics.NewSorensenDice(),
	}
}

// Resolve maps a raw ingredient name to a catalog entry: exact match first,
// then the first candidate in store order whose similarity clears the
// threshold (later candidates are not consulted, even if they score higher),
// then a newly created entry.
func (c *Catalog) Resolve(ctx context.Context, rawName string) (*Ingredient, error) {
	name := NormalizeName(rawName)
	if name == "" {
		return nil, common.NewValidationError(
			fmt.Sprintf("ingredient name %q is empty after normalization", rawName))
	}

	if existing, err := c.store.FindByName(ctx, name); err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	} else if existing != nil {
		return existing, nil
	}

	candidates, err := c.store.SearchCandidates(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search candidates for %q: %w", name, err)
	}
	for _, cand := range candidates {
		score := strutil.Similarity(name, cand.Name, c.dice)
		if score > c.threshold {
			common.LogDebug("ingredient fuzzy matched",
				zap.String("name", name),
				zap.String("matched", cand.Name),
				zap.Float64("score", score),
			)
			matched := cand
			return &matched, nil
		}
	}

	created, err := c.store.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}
	common.LogInfo("ingredient created", zap.String("name", name))
	return created, nil
}

// ResolveMentions canonicalizes every ingredient mention in the recipe
// against the catalog, rewriting Name to the matched entry's normalized name.
// DisplayName keeps the original wording. Best effort: a mention that cannot
// be resolved keeps its name as-is.
func (c *Catalog) ResolveMentions(ctx context.Context, rec *pipeline.ImportedRecipe) {
	for i := range rec.Instructions {
		for j := range rec.Instructions[i].Ingredients {
			m := &rec.Instructions[i].Ingredients[j]
			entry, err := c.Resolve(ctx, m.Name)
			if err != nil {
				common.LogDebug("ingredient left unresolved",
					zap.Error(err),
					zap.String("name", m.Name),
				)
				continue
			}
			m.Name = entry.Name
		}
	}
}

// MemoryStore is an in-memory Store. Iteration order for SearchCandidates is
// insertion order, which makes fuzzy resolution deterministic.
type MemoryStore struct {
	mu      sync.RWMutex
	byName  map[string]*Ingredient
	ordered []*Ingredient
}

// NewMemoryStore creates an empty in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]*Ingredient)}
}

// FindByName implements Store.
func (s *MemoryStore) FindByName(_ context.Context, name string) (*Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ing, ok := s.byName[name]; ok {
		copied := *ing
		return &copied, nil
	}
	return nil, nil
}

// SearchCandidates implements Store.
func (s *MemoryStore) SearchCandidates(_ context.Context, name string) ([]Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Ingredient
	for _, ing := range s.ordered {
		if strings.Contains(ing.Name, name) || strings.Contains(name, ing.Name) {
			out = append(out, *ing)
		}
	}
	return out, nil
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, name string) (*Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byName[name]; ok {
		copied := *existing
		return &copied, nil
	}
	ing := &Ingredient{ID: uuid.NewString(), Name: name}
	s.byName[name] = ing
	s.ordered = append(s.ordered, ing)
	copied := *ing
	return &copied, nil
}
