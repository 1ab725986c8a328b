package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

// RosterRepository is the roster source supplying canonical teacher/class
// identities, loaded once per reporting session.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListIdentities returns the roster in its declared order. The containment
// fallback of the identity resolver relies on this order being stable.
func (r *RosterRepository) ListIdentities(ctx context.Context) ([]models.TeacherIdentity, error) {
	const query = `SELECT canonical_id, display_name, class_key, class_display
FROM homeroom_roster ORDER BY sort_order ASC, canonical_id ASC`
	var identities []models.TeacherIdentity
	if err := r.db.SelectContext(ctx, &identities, query); err != nil {
		return nil, fmt.Errorf("list roster identities: %w", err)
	}
	return identities, nil
}
