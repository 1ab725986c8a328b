package service

import (
	"strings"
	"sync"
	"unicode"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

// turkishFold maps the Turkish letter variants to their base Latin letter.
// Kept as a data table so the fold set stays testable on its own.
var turkishFold = map[rune]rune{
	'ç': 'c', 'Ç': 'c',
	'ğ': 'g', 'Ğ': 'g',
	'ı': 'i', 'İ': 'i',
	'ö': 'o', 'Ö': 'o',
	'ş': 's', 'Ş': 's',
	'ü': 'u', 'Ü': 'u',
}

// normalizeToken lowercases, folds Turkish diacritics to ASCII, and strips
// whitespace plus the separator characters "/", "-" and ".". Two tokens that
// normalise to the same string are considered the same identity reference.
func normalizeToken(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if folded, ok := turkishFold[r]; ok {
			r = folded
		} else {
			r = unicode.ToLower(r)
		}
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '/', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// resolveIdentity maps one raw class-or-teacher token to a catalog identity.
// The fallback order is strict and load-bearing: exact matches must never be
// shadowed by fuzzy ones.
//
//  1. exact class_key
//  2. exact class_display, then exact teacher display_name
//  3. normalized equality against class_display, then display_name
//  4. containment of normalized class_display in the normalized token or vice
//     versa, first match in catalog declaration order
//
// Unresolved tokens return nil; callers treat them as uncategorised rather
// than failing the aggregation.
func resolveIdentity(token string, cat *Catalog) *models.TeacherIdentity {
	token = strings.TrimSpace(token)
	if token == "" || cat == nil {
		return nil
	}

	if identity := cat.LookupByKey(token); identity != nil {
		return identity
	}
	if identity := cat.LookupByDisplay(token); identity != nil {
		return identity
	}
	entries := cat.All()
	for i := range entries {
		if entries[i].DisplayName == token {
			return &entries[i]
		}
	}

	norm := normalizeToken(token)
	if norm == "" {
		return nil
	}
	for i := range entries {
		if normalizeToken(entries[i].ClassDisplay) == norm {
			return &entries[i]
		}
	}
	for i := range entries {
		if normalizeToken(entries[i].DisplayName) == norm {
			return &entries[i]
		}
	}

	// Containment can be ambiguous ("5A" vs "15A"); the first declaration-order
	// match is taken so the outcome stays deterministic.
	for i := range entries {
		entryNorm := normalizeToken(entries[i].ClassDisplay)
		if entryNorm == "" {
			continue
		}
		if strings.Contains(norm, entryNorm) || strings.Contains(entryNorm, norm) {
			return &entries[i]
		}
	}

	return nil
}

// IdentityResolver resolves raw tokens against one catalog, memoising per
// distinct token. Resolution itself is pure; the memo only short-circuits
// repeated lookups and never changes a result. Safe for concurrent use.
type IdentityResolver struct {
	catalog *Catalog

	mu   sync.RWMutex
	memo map[string]*models.TeacherIdentity
}

// NewIdentityResolver builds a resolver bound to the given catalog.
func NewIdentityResolver(catalog *Catalog) *IdentityResolver {
	return &IdentityResolver{
		catalog: catalog,
		memo:    make(map[string]*models.TeacherIdentity),
	}
}

// Resolve returns the canonical identity for the token, or nil when no
// fallback matches.
func (r *IdentityResolver) Resolve(token string) *models.TeacherIdentity {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	cached, seen := r.memo[token]
	r.mu.RUnlock()
	if seen {
		return cached
	}

	resolved := resolveIdentity(token, r.catalog)

	r.mu.Lock()
	r.memo[token] = resolved
	r.mu.Unlock()
	return resolved
}
