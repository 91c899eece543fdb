package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/cycle"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Cycles"

var exportHeaders = []string{"Cycle", "Start Date", "End Date", "Total Savings", "Notes", "Created At"}

func exportRow(c *cycle.Cycle) []string {
	return []string{
		c.Name,
		calendar.Format(c.StartDate),
		calendar.Format(c.EndDate),
		c.TotalSavings.StringFixed(2),
		c.Notes,
		c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) endedCycles(c *gin.Context) ([]*cycle.Cycle, bool) {
	all, err := h.cycles.ListCycles(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return nil, false
	}
	ended := make([]*cycle.Cycle, 0, len(all))
	for _, cy := range all {
		if cy.Status == cycle.StatusEnded {
			ended = append(ended, cy)
		}
	}
	return ended, true
}

func exportFilename(ext string) string {
	return fmt.Sprintf("cycles_%s.%s", time.Now().Format("20060102"), ext)
}

// buildCyclesWorkbook lays the cycles out on a single sheet, one row each
// under a header row.
func buildCyclesWorkbook(cycles []*cycle.Cycle) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	set := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(exportSheet, cell, v)
	}

	for i, header := range exportHeaders {
		if err := set(i+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	for r, cy := range cycles {
		for i, v := range exportRow(cy) {
			var value interface{} = v
			if i == 3 {
				// keep totals numeric in the sheet
				value = cy.TotalSavings.InexactFloat64()
			}
			if err := set(i+1, r+2, value); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{{"A", "A", 24}, {"B", "D", 14}, {"E", "F", 28}} {
		if err := f.SetColWidth(exportSheet, w.from, w.to, w.width); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// writeCyclesCSV writes the header and one record per cycle to out.
func writeCyclesCSV(out io.Writer, cycles []*cycle.Cycle) error {
	w := csv.NewWriter(out)
	if err := w.Write(exportHeaders); err != nil {
		return err
	}
	for _, cy := range cycles {
		if err := w.Write(exportRow(cy)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportCyclesXLSX writes the settled cycle history as a spreadsheet.
func (h *Handler) ExportCyclesXLSX(c *gin.Context) {
	cycles, ok := h.endedCycles(c)
	if !ok {
		return
	}

	f, err := buildCyclesWorkbook(cycles)
	if err != nil {
		h.log.WithError(err).Error("Failed to build XLSX export")
		Error(c, http.StatusInternalServerError, CodeServerErr, "Failed to build export")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+exportFilename("xlsx"))
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("Failed to write XLSX export")
	}
}

// ExportCyclesCSV writes the settled cycle history as CSV.
func (h *Handler) ExportCyclesCSV(c *gin.Context) {
	cycles, ok := h.endedCycles(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := writeCyclesCSV(&buf, cycles); err != nil {
		h.log.WithError(err).Error("Failed to build CSV export")
		Error(c, http.StatusInternalServerError, CodeServerErr, "Failed to build export")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportFilename("csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
