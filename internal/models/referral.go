package models

import "time"

// ReferralRecord is one guidance-office referral event. Records are written by
// the referral submission workflow and are immutable afterwards; the analytics
// engine only reads them. Class and teacher tokens are raw, as entered: they
// may hold a canonical key, a display string, or free text with Turkish
// diacritics.
type ReferralRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentName  string    `db:"student_name" json:"student_name"`
	ClassToken   string    `db:"class_token" json:"class_token"`
	TeacherToken *string   `db:"teacher_token" json:"teacher_token,omitempty"`
	Reason       string    `db:"reason" json:"reason"`
	OccurredOn   time.Time `db:"occurred_on" json:"occurred_on"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ReferralFilter scopes coarse record loading from the store. The engine
// itself applies exact window bounds in memory; this filter only pre-narrows
// the set fetched from the database.
type ReferralFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}
