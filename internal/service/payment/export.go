package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/utils"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// 导出参数
const (
	ExportSheet   = "Payments"
	ExportMaxRows = 10000
)

var exportHeaders = []string{
	"Receipt No", "Merchant", "National ID", "Place", "Type", "Amount", "Payment Date", "Period Start", "Period End", "Motif",
}

// Export 按筛选条件导出缴费记录为 xlsx
func (s *PaymentService) Export(ctx context.Context, filters map[string]interface{}) ([]byte, error) {
	payments, err := s.paymentRepo.ListForExport(ctx, filters, ExportMaxRows)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return nil, errors.ErrExportFailed.WithError(err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ExportSheet, cell, header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
		f.SetCellStyle(ExportSheet, "A1", last, style)
	}

	for i, p := range payments {
		row := i + 2
		dto := s.assembler.Payment(p)
		amount, _ := p.Amount.Float64()
		values := []interface{}{
			dto.ReceiptNo, dto.MerchantName, nationalID(p), dto.Place, string(p.Type), amount,
			dateCell(p.PaymentDate), dateCell(p.PeriodStart), dateCell(p.PeriodEnd), dto.Motif,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(ExportSheet, cell, v)
		}
	}

	f.SetColWidth(ExportSheet, "A", "A", 22)
	f.SetColWidth(ExportSheet, "B", "D", 28)
	f.SetColWidth(ExportSheet, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.ErrExportFailed.WithError(err)
	}
	return buf.Bytes(), nil
}

// ExportFilename 导出文件名
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("payments_%s.xlsx", now.Format("20060102_150405"))
}

// 导出文件供内部对账，身份证号不脱敏
func nationalID(p *models.Payment) string {
	if p.Merchant == nil {
		return ""
	}
	return p.Merchant.NationalID
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(utils.DateFormat)
}
