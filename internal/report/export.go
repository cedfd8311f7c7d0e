package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/inventory"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventory"

var exportHeader = []string{
	"Product ID", "Name", "Category", "Unit", "Cost Price", "Selling Price", "Min Stock",
	"Purchased", "Sold", "Wasted", "Current Stock", "Stock Value", "Low Stock", "Days Until Expiry",
}

func exportRow(s inventory.Snapshot) []string {
	expiry := ""
	if s.DaysUntilExpiry != nil {
		expiry = strconv.Itoa(*s.DaysUntilExpiry)
	}
	return []string{
		strconv.FormatUint(uint64(s.ProductID), 10),
		csvText(s.Name),
		csvText(s.Category),
		csvText(s.Unit),
		s.CostPrice.StringFixed(2),
		s.SellingPrice.StringFixed(2),
		formatQty(s.MinStock),
		formatQty(s.TotalPurchased),
		formatQty(s.TotalSold),
		formatQty(s.TotalWasted),
		formatQty(s.CurrentStock),
		s.StockValue.StringFixed(2),
		strconv.FormatBool(s.IsLowStock),
		expiry,
	}
}

// csvText stops spreadsheet apps from evaluating free text as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func WriteCSV(w io.Writer, snaps []inventory.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, s := range snaps {
		if err := cw.Write(exportRow(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes one sheet with typed numeric cells.
func WriteXLSX(w io.Writer, snaps []inventory.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return err
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(inventorySheet, "A1", &header); err != nil {
		return err
	}

	for i, s := range snaps {
		var expiry any
		if s.DaysUntilExpiry != nil {
			expiry = *s.DaysUntilExpiry
		}
		row := []any{
			s.ProductID, s.Name, s.Category, s.Unit,
			s.CostPrice.InexactFloat64(), s.SellingPrice.InexactFloat64(), s.MinStock,
			s.TotalPurchased, s.TotalSold, s.TotalWasted, s.CurrentStock,
			s.StockValue.InexactFloat64(), s.IsLowStock, expiry,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(inventorySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.AutoFilter(inventorySheet, fmt.Sprintf("A1:N%d", len(snaps)+1), nil); err != nil {
		return err
	}
	return f.Write(w)
}

// GET /api/reports/inventory/export?format=csv|xlsx&search=&category=&sort=&order=
func ExportInventoryHandler(src inventory.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := inventory.ParseQuery(c)
		if err != nil {
			return err
		}
		format := c.Query("format", "csv")
		if format != "csv" && format != "xlsx" {
			return httpx.BadRequest("format must be csv or xlsx")
		}
		snaps, err := snapshots(c, src)
		if err != nil {
			return err
		}
		snaps = inventory.Apply(snaps, q)

		name := "inventory-" + httpx.Today().Format(httpx.DateLayout) + "." + format
		c.Attachment(name)
		if format == "xlsx" {
			if err := WriteXLSX(c.Response().BodyWriter(), snaps); err != nil {
				return httpx.Internal("could not write spreadsheet")
			}
			return nil
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		if err := WriteCSV(c.Response().BodyWriter(), snaps); err != nil {
			return httpx.Internal("could not write csv")
		}
		return nil
	}
}
