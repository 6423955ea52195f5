package models

// Facility is read-only to this service; only its capacity table matters here.
type Facility struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	City string `db:"city" json:"city"`
}

// FacilityCapacity is one row of a facility's per-speciality capacity table.
type FacilityCapacity struct {
	FacilityID    string `db:"facility_id" json:"facility_id"`
	SpecialityID  string `db:"speciality_id" json:"speciality_id"`
	LimitCapacity int    `db:"limit_capacity" json:"limit_capacity"`
}
