package schedule

import (
	"fmt"
	"time"

	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

// SpecialityRequest is one requested speciality for a rotation, before it is
// persisted as a rotation speciality row.
type SpecialityRequest struct {
	SpecialityID      string `json:"speciality_id" validate:"required"`
	ProfessorID       string `json:"professor_id" validate:"required"`
	NumberWeeks       int    `json:"number_weeks" validate:"required,min=1"`
	AvailableCapacity int    `json:"available_capacity"`
}

// AllocateCapacity validates a requested speciality list against a rotation
// window and stamps each entry with the facility's capacity limit for that
// speciality. Entries absent from the capacity table keep a zero capacity;
// they persist but can never receive a student. The function is a pure
// transformation: the caller persists the returned list.
func AllocateCapacity(start, finish time.Time, requests []SpecialityRequest, limits map[string]int) ([]SpecialityRequest, error) {
	start, finish = Day(start), Day(finish)

	totalDays := 0
	for _, req := range requests {
		totalDays += req.NumberWeeks * slotDays
	}

	windowDays := int(finish.Sub(start).Hours()/24) + 1
	if totalDays > windowDays {
		minimumFinish := start.AddDate(0, 0, totalDays)
		return nil, appErrors.Clone(appErrors.ErrInvalidDuration,
			fmt.Sprintf("the minimum finish date to assign is %s", minimumFinish.Format("2006-01-02")))
	}

	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := seen[req.SpecialityID]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicateSpeciality,
				fmt.Sprintf("speciality %s is repeated in the request", req.SpecialityID))
		}
		seen[req.SpecialityID] = struct{}{}
	}

	stamped := make([]SpecialityRequest, len(requests))
	copy(stamped, requests)
	for i := range stamped {
		if limit, ok := limits[stamped[i].SpecialityID]; ok {
			stamped[i].AvailableCapacity = limit
		}
	}
	return stamped, nil
}
