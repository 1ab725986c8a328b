package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
)

// Catalog is the canonical identity set for one reporting session. It is
// built once from the roster and treated as read-only afterwards, which makes
// it safe to share across concurrent aggregations.
type Catalog struct {
	entries   []models.TeacherIdentity
	byKey     map[string]int
	byID      map[string]int
	byDisplay map[string]int
}

// LoadCatalog validates the roster entries and indexes them. Declaration
// order of the input slice is preserved; the containment fallback in the
// identity resolver depends on it.
func LoadCatalog(identities []models.TeacherIdentity) (*Catalog, error) {
	cat := &Catalog{
		entries:   make([]models.TeacherIdentity, 0, len(identities)),
		byKey:     make(map[string]int, len(identities)),
		byID:      make(map[string]int, len(identities)),
		byDisplay: make(map[string]int, len(identities)),
	}
	for _, identity := range identities {
		if _, dup := cat.byID[identity.CanonicalID]; dup {
			return nil, appErrors.Wrap(
				fmt.Errorf("canonical_id %q appears twice", identity.CanonicalID),
				appErrors.ErrDuplicateIdentity.Code, appErrors.ErrDuplicateIdentity.Status, appErrors.ErrDuplicateIdentity.Message)
		}
		if _, dup := cat.byKey[identity.ClassKey]; dup {
			return nil, appErrors.Wrap(
				fmt.Errorf("class_key %q appears twice", identity.ClassKey),
				appErrors.ErrDuplicateIdentity.Code, appErrors.ErrDuplicateIdentity.Status, appErrors.ErrDuplicateIdentity.Message)
		}
		idx := len(cat.entries)
		cat.entries = append(cat.entries, identity)
		cat.byID[identity.CanonicalID] = idx
		cat.byKey[identity.ClassKey] = idx
		// First declaration wins when two entries render the same display.
		if _, seen := cat.byDisplay[identity.ClassDisplay]; !seen {
			cat.byDisplay[identity.ClassDisplay] = idx
		}
	}
	return cat, nil
}

// LookupByKey returns the identity registered under the class key, or nil.
func (c *Catalog) LookupByKey(classKey string) *models.TeacherIdentity {
	if c == nil {
		return nil
	}
	if idx, ok := c.byKey[classKey]; ok {
		return &c.entries[idx]
	}
	return nil
}

// LookupByID returns the identity with the given canonical ID, or nil.
func (c *Catalog) LookupByID(canonicalID string) *models.TeacherIdentity {
	if c == nil {
		return nil
	}
	if idx, ok := c.byID[canonicalID]; ok {
		return &c.entries[idx]
	}
	return nil
}

// LookupByDisplay returns the identity whose class display matches the text
// exactly, or nil.
func (c *Catalog) LookupByDisplay(text string) *models.TeacherIdentity {
	if c == nil {
		return nil
	}
	if idx, ok := c.byDisplay[text]; ok {
		return &c.entries[idx]
	}
	return nil
}

// All returns the identities in declaration order. The returned slice is the
// catalog's backing storage and must not be mutated.
func (c *Catalog) All() []models.TeacherIdentity {
	if c == nil {
		return nil
	}
	return c.entries
}

// Len reports the number of identities held.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

type rosterStore interface {
	ListIdentities(ctx context.Context) ([]models.TeacherIdentity, error)
}

// CatalogService owns the session catalog. Load is a single-writer operation
// performed at startup (and on explicit reload); reads afterwards are
// lock-free from the caller's point of view.
type CatalogService struct {
	roster rosterStore
	logger *zap.Logger

	mu      sync.RWMutex
	current *Catalog
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(roster rosterStore, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{roster: roster, logger: logger}
}

// Reload fetches the roster and swaps in a freshly built catalog.
func (s *CatalogService) Reload(ctx context.Context) error {
	if s.roster == nil {
		return appErrors.Clone(appErrors.ErrInternal, "roster source unavailable")
	}
	identities, err := s.roster.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	cat, err := LoadCatalog(identities)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = cat
	s.mu.Unlock()
	s.logger.Info("roster catalog loaded", zap.Int("identities", cat.Len()))
	return nil
}

// Current returns the active catalog, or nil before the first Reload.
func (s *CatalogService) Current() *Catalog {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
