package models

// TeacherIdentity is the canonical record for a homeroom teacher and the
// class they own. CanonicalID and ClassKey are unique within a roster;
// ClassDisplay is the human-readable form referral tokens are matched against.
type TeacherIdentity struct {
	CanonicalID  string `db:"canonical_id" json:"canonical_id"`
	DisplayName  string `db:"display_name" json:"display_name"`
	ClassKey     string `db:"class_key" json:"class_key"`
	ClassDisplay string `db:"class_display" json:"class_display"`
}
