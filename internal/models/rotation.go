package models

import "time"

// Rotation is a time-bounded clinical assignment of a student group to a facility.
// Dates are calendar dates normalized to UTC midnight; both endpoints are inclusive.
type Rotation struct {
	ID         string    `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	FacilityID string    `db:"facility_id" json:"facility_id"`
	Semester   int       `db:"semester" json:"semester"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	FinishDate time.Time `db:"finish_date" json:"finish_date"`
	State      bool      `db:"state" json:"state"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WindowDays returns the inclusive length of the rotation window in days.
func (r Rotation) WindowDays() int {
	return int(r.FinishDate.Sub(r.StartDate).Hours()/24) + 1
}

// RotationSpeciality is a speciality instance scoped to one rotation. The
// available capacity is stamped from the facility limit at create/update time
// and is not re-derived afterwards.
type RotationSpeciality struct {
	ID                string    `db:"id" json:"id"`
	RotationID        string    `db:"rotation_id" json:"rotation_id"`
	SpecialityID      string    `db:"speciality_id" json:"speciality_id"`
	ProfessorID       string    `db:"professor_id" json:"professor_id"`
	AvailableCapacity int       `db:"available_capacity" json:"available_capacity"`
	NumberWeeks       int       `db:"number_weeks" json:"number_weeks"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// RotationDate is one student's concrete weekly placement within a rotation speciality.
type RotationDate struct {
	ID                   string    `db:"id" json:"id"`
	RotationID           string    `db:"rotation_id" json:"rotation_id"`
	RotationSpecialityID string    `db:"rotation_speciality_id" json:"rotation_speciality_id"`
	StudentUserID        string    `db:"student_user_id" json:"student_user_id"`
	StartDate            time.Time `db:"start_date" json:"start_date"`
	FinishDate           time.Time `db:"finish_date" json:"finish_date"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// RotationDetail is a rotation with its owned children loaded.
type RotationDetail struct {
	Rotation
	Specialities []RotationSpeciality `json:"specialities"`
	Dates        []RotationDate       `json:"dates"`
}

// RotationFilter narrows rotation listings.
type RotationFilter struct {
	GroupID    string
	FacilityID string
	StartDate  *time.Time
	FinishDate *time.Time
	Semester   int
	State      *bool
	Page       int
	PageSize   int
}

// RotationWindow is a bare (start, finish) pair used by date pickers.
type RotationWindow struct {
	StartDate  time.Time `db:"start_date" json:"start_date"`
	FinishDate time.Time `db:"finish_date" json:"finish_date"`
}

// GroupRotation is the compact listing of a group's rotations.
type GroupRotation struct {
	ID         string    `db:"id" json:"id"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	FinishDate time.Time `db:"finish_date" json:"finish_date"`
}

// SpecialityUsedDates reports the fully booked weekly slots of one rotation speciality.
type SpecialityUsedDates struct {
	RotationSpecialityID string           `json:"rotation_speciality_id"`
	UsedDates            []RotationWindow `json:"used_dates"`
}

// StudentScheduleDate is one placement row in the rotation schedule table.
type StudentScheduleDate struct {
	RotationDateID string    `db:"rotation_date_id" json:"rotation_date_id"`
	SpecialityID   string    `db:"speciality_id" json:"speciality_id"`
	SpecialityName string    `db:"speciality_name" json:"speciality_name"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	FinishDate     time.Time `db:"finish_date" json:"finish_date"`
}

// StudentSchedule groups a student's placements for the schedule table.
type StudentSchedule struct {
	StudentUserID string                `json:"student_user_id"`
	Name          string                `json:"name"`
	Lastname      string                `json:"lastname"`
	Dates         []StudentScheduleDate `json:"rotation_dates"`
}
