// Package export renders ledger views as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"buildledger/internal/core/id"
	"buildledger/internal/domain/siteledger"
)

// ContentTypeXLSX is the MIME type of the produced workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const entriesSheet = "Entries"

var entryHeadings = []string{"Seq", "Posted At", "Kind", "Type", "Amount", "Expenses After", "Related ID", "Posted By"}

// SiteEntries writes the site's log, followed by a budget summary, to w.
func SiteEntries(w io.Writer, site *siteledger.Site, entries []*siteledger.Entry) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), entriesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("heading style: %w", err)
	}

	if err := setRow(f, 1, toAny(entryHeadings)); err != nil {
		return err
	}
	if err := f.SetRowStyle(entriesSheet, 1, 1, headStyle); err != nil {
		return fmt.Errorf("style headings: %w", err)
	}

	row := 2
	for _, e := range entries {
		related := ""
		if e.RelatedID != nil {
			related = e.RelatedID.String()
		}
		values := []any{
			e.Seq,
			e.PostedAt.Format("2006-01-02 15:04:05"),
			string(e.Kind),
			string(e.Type),
			e.Amount.InexactFloat64(),
			e.ExpensesAfter.InexactFloat64(),
			related,
			postedBy(e.PostedBy),
		}
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}
	if row > 2 {
		if err := f.SetCellStyle(entriesSheet, "E2", fmt.Sprintf("F%d", row-1), moneyStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	row++
	summary := [][]any{
		{"Site", site.Name},
		{"Budget", site.Budget.InexactFloat64()},
		{"Expenses", site.Expenses.InexactFloat64()},
		{"Remaining", site.Remaining().InexactFloat64()},
	}
	for _, values := range summary {
		if err := setRow(f, row, values); err != nil {
			return err
		}
		if err := f.SetCellStyle(entriesSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headStyle); err != nil {
			return fmt.Errorf("style summary: %w", err)
		}
		row++
	}
	if err := f.SetCellStyle(entriesSheet, fmt.Sprintf("B%d", row-3), fmt.Sprintf("B%d", row-1), moneyStyle); err != nil {
		return fmt.Errorf("style summary amounts: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// FileName is the attachment name for a site export.
func FileName(site *siteledger.Site) string {
	return fmt.Sprintf("site-%s-entries.xlsx", site.ID)
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(entriesSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func postedBy(v id.ID) string {
	if id.IsNil(v) {
		return "system"
	}
	return v.String()
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
