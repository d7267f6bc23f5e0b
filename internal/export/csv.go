package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// WriteCSV writes the clinics of ds as CSV with a header row.
func WriteCSV(w io.Writer, ds *model.Dataset, ledger *provenance.Ledger, opts Options) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(clinicColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range rows(ds, ledger, opts) {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
