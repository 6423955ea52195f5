package models

// Group is a named cohort of students; read-only to this service.
type Group struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	State bool   `db:"state" json:"state"`
}

// GroupMember ties a student to a group, carrying display fields for the
// schedule table.
type GroupMember struct {
	GroupID  string `db:"group_id" json:"group_id"`
	UserID   string `db:"user_id" json:"user_id"`
	Name     string `db:"name" json:"name"`
	Lastname string `db:"lastname" json:"lastname"`
}
