package domain

import "context"

// ExportFormat selects the registrations export encoding.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

func (f ExportFormat) IsValid() bool {
	return f == ExportXLSX || f == ExportCSV
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type AdminUsecase interface {
	ListRegistrations(ctx context.Context, filter RegistrationFilter) (*PaginatedResult[Registration], error)
	ApproveRegistration(ctx context.Context, email string) error
	ExportRegistrations(ctx context.Context, status RegistrationStatus, format ExportFormat) (*ExportFile, error)
}
