package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"

	"github.com/xuri/excelize/v2"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
	exportSheet          = "Registrations"
)

var exportHeader = []string{"Email", "Full name", "Country", "Heard from", "Organization", "Status", "Registered at"}

type adminUsecase struct {
	regRepo domain.RegistrationRepository
	audit   *audit.Logger
	now     func() time.Time
}

func NewAdminUsecase(regRepo domain.RegistrationRepository, auditLog *audit.Logger) domain.AdminUsecase {
	return &adminUsecase{regRepo: regRepo, audit: auditLog, now: time.Now}
}

// ListRegistrations returns paginated registrations, newest first
func (u *adminUsecase) ListRegistrations(ctx context.Context, filter domain.RegistrationFilter) (*domain.PaginatedResult[domain.Registration], error) {
	if err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.BadRequest("Invalid status filter")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > maxAdminPageSize {
		filter.Limit = defaultAdminPageSize
	}

	regs, total, err := u.regRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to fetch registrations", err)
	}
	if regs == nil {
		regs = []domain.Registration{}
	}

	return &domain.PaginatedResult[domain.Registration]{
		Data:       regs,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// ApproveRegistration is the only mutation a registration ever sees.
func (u *adminUsecase) ApproveRegistration(ctx context.Context, email string) error {
	if err := u.requireAdmin(ctx); err != nil {
		return err
	}

	email = domain.NormalizeEmail(email)
	if email == "" {
		return apperror.BadRequest("Email is required")
	}

	err := u.regRepo.UpdateStatus(ctx, email, domain.RegistrationPending, domain.RegistrationApproved)
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound("No pending registration for this email")
	}
	if err != nil {
		return apperror.StoreFailure("Failed to approve registration", err)
	}

	u.audit.Log(ctx, audit.Event{
		Event:        audit.EventRegistrationApprove,
		SubjectType:  "email",
		SubjectValue: audit.HashValue(email),
		Details:      map[string]interface{}{"by": actorID(ctx)},
	})
	return nil
}

func (u *adminUsecase) ExportRegistrations(ctx context.Context, status domain.RegistrationStatus, format domain.ExportFormat) (*domain.ExportFile, error) {
	if err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, apperror.BadRequest("Invalid status filter")
	}
	if format == "" {
		format = domain.ExportXLSX
	}
	if !format.IsValid() {
		return nil, apperror.BadRequest("Format must be xlsx or csv")
	}

	regs, err := u.regRepo.ListAll(ctx, status)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to fetch registrations", err)
	}

	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []string{
			r.Email,
			r.FullName,
			r.Country,
			string(r.HeardFrom),
			r.Organization,
			string(r.Status),
			r.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := u.now().UTC().Format("20060102-150405")
	file := &domain.ExportFile{Filename: fmt.Sprintf("registrations-%s.%s", stamp, format)}
	switch format {
	case domain.ExportCSV:
		file.ContentType = "text/csv"
		file.Content, err = renderCSV(rows)
	default:
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		file.Content, err = renderXLSX(rows)
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("render %s export: %w", format, err))
	}

	u.audit.Log(ctx, audit.Event{
		Event:        audit.EventDataExport,
		SubjectType:  "user_id",
		SubjectValue: actorID(ctx),
		Details: map[string]interface{}{
			"format": string(format),
			"status": string(status),
			"rows":   len(rows),
		},
	})
	return file, nil
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// requireAdmin checks if the current user has admin role
// Works with both Gin context (c.Set) and standard context.WithValue
func (u *adminUsecase) requireAdmin(ctx context.Context) error {
	var role string

	if r, ok := ctx.Value(string(domain.KeyUserRole)).(string); ok {
		role = r
	}
	if role == "" {
		if r, ok := ctx.Value(domain.KeyUserRole).(string); ok {
			role = r
		}
	}

	if role != domain.RoleAdmin {
		return apperror.Forbidden("Admin access required")
	}
	return nil
}

func actorID(ctx context.Context) string {
	if id, ok := ctx.Value(domain.KeyUserID).(string); ok {
		return id
	}
	id, _ := ctx.Value(string(domain.KeyUserID)).(string)
	return id
}
