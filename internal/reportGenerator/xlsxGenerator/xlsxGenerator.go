package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/utils"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	err = g.fillSheet(ctx, f, report)
	if err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) sectionStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSheet(ctx context.Context, f *excelize.File, report model.LedgerReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillSheet"

	sheetName := report.Broker.Name
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// summary block
	err = f.MergeCell(sheetName, "A1", "B1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Cash summary")

	styleID, err := g.sectionStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("failed to apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "account")
	_ = f.SetCellStr(sheetName, "B2", report.Broker.Name)
	_ = f.SetCellStr(sheetName, "A3", "currency")
	_ = f.SetCellStr(sheetName, "B3", report.Broker.Currency)
	_ = f.SetCellStr(sheetName, "A4", "initial balance")
	_ = f.SetCellValue(sheetName, "B4", report.Summary.InitialBalance.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A5", "current balance")
	_ = f.SetCellValue(sheetName, "B5", report.Summary.CurrentBalance.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A6", "total inflows")
	_ = f.SetCellValue(sheetName, "B6", report.Summary.TotalInflows.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A7", "total outflows")
	_ = f.SetCellValue(sheetName, "B7", report.Summary.TotalOutflows.InexactFloat64())

	// holdings block
	rowNum := 9

	err = f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("E%d", rowNum))
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Holdings")

	styleID, err = g.sectionStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return fmt.Errorf("failed to apply style: %w", err)
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "symbol")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "label")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "net quantity")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "last price")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "market value")

	for _, holding := range report.Holdings {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), holding.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), holding.Label)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), holding.NetQuantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), holding.LastPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), holding.MarketValue.InexactFloat64())
	}

	// ledger block
	rowNum += 2

	err = f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("E%d", rowNum))
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Cash ledger")

	styleID, err = g.sectionStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return fmt.Errorf("failed to apply style: %w", err)
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "date")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "type")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "amount")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "reference")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "comment")

	for _, tr := range report.Transactions {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), tr.Date.Format("2006-01-02"))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), tr.Type)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), tr.Amount.InexactFloat64())
		if tr.ReferenceID != nil {
			_ = f.SetCellInt(sheetName, fmt.Sprintf("D%d", rowNum), int(*tr.ReferenceID))
		}
		_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), tr.Comment)
	}

	return nil
}
