package export

import (
	"encoding/csv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/model"
)

// WriteStatsCSV writes one row per region. Undefined values are empty cells.
func WriteStatsCSV(path string, table *aggregate.Table) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	if len(table.Stats) == 0 {
		err = enc.EncodeHeader(model.RegionStats{})
	} else {
		err = enc.Encode(table.Stats)
	}
	if err != nil {
		_ = f.Close()
		return eris.Wrap(err, "export: encode stats csv")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "export: flush stats csv")
	}
	return eris.Wrap(f.Close(), "export: close stats csv")
}
