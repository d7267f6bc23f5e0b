package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/quality"
)

// Sheet names in the workbook.
const (
	SheetClinics      = "clinics"
	SheetCompleteness = "completeness"
)

// WriteXLSX saves a workbook with a clinics sheet and, when rep is not
// nil, a completeness sheet summarizing it.
func WriteXLSX(path string, ds *model.Dataset, ledger *provenance.Ledger, rep *quality.Report, opts Options) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetClinics)
	if err != nil {
		return eris.Wrap(err, "export: add clinics sheet")
	}
	addRow(sheet, clinicColumns)
	for _, row := range rows(ds, ledger, opts) {
		addRow(sheet, row)
	}

	if rep != nil {
		sheet, err := f.AddSheet(SheetCompleteness)
		if err != nil {
			return eris.Wrap(err, "export: add completeness sheet")
		}
		addRow(sheet, []string{"field", "populated", "percent", "original", "imputed"})
		for _, name := range rep.FieldNames() {
			fc := rep.Fields[name]
			addRow(sheet, []string{
				name,
				fmt.Sprint(fc.Populated),
				fmt.Sprintf("%.1f", fc.Percent),
				fmt.Sprint(fc.Original),
				fmt.Sprint(fc.Imputed),
			})
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
