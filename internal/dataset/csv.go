// Package dataset reads and writes the observation and point CSV files, and loads them
// cache-first from a remote source.
package dataset

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pintmap/internal/model"
)

// pointColumns are the columns a known-point catalog must carry; name is optional.
var pointColumns = []string{"pub_id", "latitude", "longitude"}

// ReadObservations decodes observation rows. Extra columns are ignored; a missing
// expected column or an unparseable value is a SchemaError.
func ReadObservations(r io.Reader, source string) ([]model.Observation, error) {
	return decodeAll[model.Observation](r, source, nil)
}

// ReadPoints decodes point rows. Only the identifier and coordinates are required.
func ReadPoints(r io.Reader, source string) ([]model.Point, error) {
	return decodeAll[model.Point](r, source, pointColumns)
}

// WriteObservations encodes observations with a header row.
func WriteObservations(w io.Writer, obs []model.Observation) error {
	return encodeAll(w, obs)
}

// WritePoints encodes points with a header row.
func WritePoints(w io.Writer, pts []model.Point) error {
	return encodeAll(w, pts)
}

// decodeAll decodes every row into T. With required nil, every column of T must be
// present in the header; otherwise only the required ones.
func decodeAll[T any](r io.Reader, source string, required []string) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.NewSchemaError(source, "", 0, eris.New("dataset: empty file, no header row"))
		}
		return nil, model.NewDataSourceError(source, eris.Wrap(err, "dataset: read header"))
	}
	if required == nil {
		dec.DisallowMissingColumns = true
	} else if err := requireColumns(dec.Header(), required, source); err != nil {
		return nil, err
	}

	var out []T
	for {
		var v T
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, schemaError(source, err)
		}
		out = append(out, v)
	}
}

func requireColumns(header, required []string, source string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	for _, col := range required {
		if _, ok := have[col]; !ok {
			return model.NewSchemaError(source, col, 0, eris.Errorf("dataset: missing column %q", col))
		}
	}
	return nil
}

func schemaError(source string, err error) error {
	var missing *csvutil.MissingColumnsError
	if errors.As(err, &missing) {
		field := ""
		if len(missing.Columns) > 0 {
			field = missing.Columns[0]
		}
		return model.NewSchemaError(source, field, 0, err)
	}
	var decErr *csvutil.DecodeError
	if errors.As(err, &decErr) {
		return model.NewSchemaError(source, decErr.Field, decErr.Line, decErr.Err)
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return model.NewSchemaError(source, "", parseErr.Line, parseErr.Err)
	}
	return model.NewSchemaError(source, "", 0, err)
}

func encodeAll[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "dataset: encode header")
		}
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrap(err, "dataset: encode row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}
