package service

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"trattoria/internal/entities"
)

const exportSheet = "Reservations"

var exportHeader = []string{
	"ID", "Date", "Time", "Party size", "Name", "Email", "Phone",
	"Status", "Payment", "Deposit", "Special requests", "Created at",
}

// AdminService backs the back-office endpoints.
type AdminService struct {
	reservations *ReservationService
}

func NewAdminService(reservations *ReservationService) *AdminService {
	return &AdminService{reservations: reservations}
}

func (s *AdminService) ListReservations(ctx context.Context, f entities.ReservationFilter) (*entities.ReservationsList, error) {
	return s.reservations.ListReservations(ctx, f)
}

// ExportReservations writes every reservation matching f as an XLSX workbook.
func (s *AdminService) ExportReservations(ctx context.Context, f entities.ReservationFilter, w io.Writer) error {
	f.Offset = 0
	f.Limit = maxListLimit

	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("error preparing export: %w", err)
	}
	if err := file.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("error writing export header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return err
	}
	style, err := file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F3E5D8"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		file.SetCellStyle(exportSheet, "A1", lastCol+"1", style)
	}

	row := 2
	for {
		page, err := s.reservations.ListReservations(ctx, f)
		if err != nil {
			return err
		}
		for _, r := range page.Reservations {
			deposit := ""
			if r.DepositCents > 0 {
				deposit = strconv.FormatFloat(float64(r.DepositCents)/100, 'f', 2, 64)
			}
			values := []any{
				r.ID, r.Date, r.Time, r.PartySize, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
				r.Status, r.PaymentStatus, deposit, r.SpecialRequests, r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := file.SetSheetRow(exportSheet, cell, &values); err != nil {
				return fmt.Errorf("error writing export row: %w", err)
			}
			row++
		}
		f.Offset += len(page.Reservations)
		if len(page.Reservations) == 0 || f.Offset >= page.Total {
			break
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("error writing export: %w", err)
	}
	return nil
}
