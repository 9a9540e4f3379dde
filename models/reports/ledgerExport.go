package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/seadatafocus/memp_backend/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// exportPageSize matches the listing cap; the export pages past it.
const exportPageSize = 200

// WriteRobLedgerXlsx streams the full ledger for one (ship, category, item)
// key as a spreadsheet, oldest row first so the chained Initial/Final columns
// read top to bottom.
func WriteRobLedgerXlsx(ctx context.Context, shipId int, category models.BunkerCategory, itemTypeKey string, w io.Writer) error {
	var ops []*models.BunkerOperation
	for offset := 0; ; offset += exportPageSize {
		page, err := models.ListBunkerOperations(ctx, shipId, category, itemTypeKey, exportPageSize, offset)
		if err != nil {
			return err
		}
		ops = append(ops, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	writeLedgerSheet(f, ops)
	return f.Write(w)
}

// writeLedgerSheet renders a newest-first operation list bottom-up so the
// sheet reads oldest first.
func writeLedgerSheet(f *excelize.File, ops []*models.BunkerOperation) {
	headers := []string{
		"Sequence", "OperationDate", "OperationType", "BDN", "ItemType",
		"InitialQtyMT", "DeltaQtyMT", "FinalQtyMT",
		"InitialVolM3", "DeltaVolM3", "FinalVolM3", "DensityAt15C",
	}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	rowNo := len(ops) + 1
	for _, op := range ops {
		opType := string(op.OperationType)
		if op.OperationType == models.OperationTypeCorrection && op.CorrectionSign != nil {
			opType = fmt.Sprintf("%s (%s)", opType, string(*op.CorrectionSign))
		}
		f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), op.LedgerSequence)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(rowNo), op.OperationDate.Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), opType)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), op.BdnNumber)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(rowNo), op.ItemTypeKey)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(rowNo), op.InitialQuantityMt.String())
		f.SetCellValue(sheetName, "G"+fmt.Sprint(rowNo), op.DeltaQuantityMt.String())
		f.SetCellValue(sheetName, "H"+fmt.Sprint(rowNo), op.FinalQuantityMt.String())
		f.SetCellValue(sheetName, "I"+fmt.Sprint(rowNo), op.InitialVolumeM3.String())
		f.SetCellValue(sheetName, "J"+fmt.Sprint(rowNo), op.DeltaVolumeM3.String())
		f.SetCellValue(sheetName, "K"+fmt.Sprint(rowNo), op.FinalVolumeM3.String())
		f.SetCellValue(sheetName, "L"+fmt.Sprint(rowNo), op.DensityAt15C.String())
		rowNo--
	}
}

// WriteConsumptionAuditXlsx exports the derived audit trail for one dosing
// event. An event with no consumption yet produces a header-only sheet.
func WriteConsumptionAuditXlsx(ctx context.Context, dosingEventId int, w io.Writer) error {
	rows, err := models.GetConsumptionAudit(ctx, dosingEventId)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"EntryDate", "BDN", "Machinery", "InitialQtyMT", "ConsumedMT", "FinalQtyMT"}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	for i, row := range rows {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+rowNo, row.EntryDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "B"+rowNo, row.BdnNumber)
		f.SetCellValue(sheetName, "C"+rowNo, row.MachineryName)
		f.SetCellValue(sheetName, "D"+rowNo, row.InitialQuantity.String())
		f.SetCellValue(sheetName, "E"+rowNo, row.ConsumedMt.String())
		f.SetCellValue(sheetName, "F"+rowNo, row.FinalQuantity.String())
	}

	return f.Write(w)
}
