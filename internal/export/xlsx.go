package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/pintmap/internal/aggregate"
)

// SheetName is the worksheet holding region statistics.
const SheetName = "regions"

var xlsxHeader = []string{
	"code", "name", "n_observations", "avg_price", "median_price",
	"min_price", "max_price", "n_points", "n_known_points", "coverage_pct",
}

// WriteStatsXLSX writes region statistics to a workbook. Undefined values are
// left blank.
func WriteStatsXLSX(path string, table *aggregate.Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, s := range table.Stats {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Code)
		row.AddCell().SetString(s.Name)
		row.AddCell().SetInt(s.Observations)
		floatCell(row, s.AvgPrice)
		floatCell(row, s.MedianPrice)
		floatCell(row, s.MinPrice)
		floatCell(row, s.MaxPrice)
		row.AddCell().SetInt(s.DistinctPoints)
		intCell(row, s.KnownPoints)
		floatCell(row, s.CoveragePct)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func floatCell(row *xlsx.Row, v *float64) {
	c := row.AddCell()
	if v != nil {
		c.SetFloat(*v)
	}
}

func intCell(row *xlsx.Row, v *int) {
	c := row.AddCell()
	if v != nil {
		c.SetInt(*v)
	}
}
