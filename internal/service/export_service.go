package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/clinsched/rotations-api/internal/models"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
	"github.com/clinsched/rotations-api/pkg/export"
)

type studentScheduleReader interface {
	ListScheduleByStudent(ctx context.Context, rotationID, studentUserID string) ([]models.StudentScheduleDate, error)
}

type tabularExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders the rotation schedule table, the per-student grid the
// coordinators used to keep in a spreadsheet.
type ExportService struct {
	rotations rotationReader
	groups    groupReader
	schedules studentScheduleReader
	csv       tabularExporter
	pdf       titledExporter
	logger    *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(rotations rotationReader, groups groupReader, schedules studentScheduleReader, csv tabularExporter, pdf titledExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{rotations: rotations, groups: groups, schedules: schedules, csv: csv, pdf: pdf, logger: logger}
}

// ScheduleTable lists each group member with their assigned dates, ordered by
// student name. Members without placements appear with an empty date list.
func (s *ExportService) ScheduleTable(ctx context.Context, rotationID string) ([]models.StudentSchedule, error) {
	rotation, err := s.rotations.FindByID(ctx, rotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation not found")
		}
		return nil, storageError(err, "failed to load rotation")
	}

	members, err := s.groups.Members(ctx, rotation.GroupID)
	if err != nil {
		return nil, storageError(err, "failed to load group members")
	}

	table := make([]models.StudentSchedule, 0, len(members))
	for _, member := range members {
		dates, err := s.schedules.ListScheduleByStudent(ctx, rotationID, member.UserID)
		if err != nil {
			return nil, storageError(err, "failed to load student schedule")
		}
		if dates == nil {
			dates = []models.StudentScheduleDate{}
		}
		table = append(table, models.StudentSchedule{
			StudentUserID: member.UserID,
			Name:          member.Name,
			Lastname:      member.Lastname,
			Dates:         dates,
		})
	}
	return table, nil
}

// ExportCSV renders the schedule table as CSV.
func (s *ExportService) ExportCSV(ctx context.Context, rotationID string) ([]byte, error) {
	table, err := s.ScheduleTable(ctx, rotationID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(scheduleDataset(table))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportPDF renders the schedule table as PDF.
func (s *ExportService) ExportPDF(ctx context.Context, rotationID string) ([]byte, error) {
	table, err := s.ScheduleTable(ctx, rotationID)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(scheduleDataset(table), "Rotation schedule")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func scheduleDataset(table []models.StudentSchedule) export.Dataset {
	headers := []string{"Student", "Speciality", "Start", "Finish"}
	rows := make([]map[string]string, 0, len(table))
	for _, student := range table {
		name := student.Name + " " + student.Lastname
		if len(student.Dates) == 0 {
			rows = append(rows, map[string]string{"Student": name, "Speciality": "-", "Start": "-", "Finish": "-"})
			continue
		}
		for _, date := range student.Dates {
			rows = append(rows, map[string]string{
				"Student":    name,
				"Speciality": date.SpecialityName,
				"Start":      date.StartDate.Format(dateLayout),
				"Finish":     date.FinishDate.Format(dateLayout),
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
