package model

import (
	"errors"
	"fmt"
)

// DataSourceError reports a source that is missing, unreadable, or yields no usable
// records after filtering.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// NewDataSourceError wraps err as a DataSourceError for source.
func NewDataSourceError(source string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Err: err}
}

// SchemaError reports an expected field that is absent or cannot be parsed.
// Line is 0 when the problem is in the header or attribute table.
type SchemaError struct {
	Source string
	Field  string
	Line   int
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema %s: field %q line %d: %v", e.Source, e.Field, e.Line, e.Err)
	}
	return fmt.Sprintf("schema %s: field %q: %v", e.Source, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError builds a SchemaError.
func NewSchemaError(source, field string, line int, err error) *SchemaError {
	return &SchemaError{Source: source, Field: field, Line: line, Err: err}
}

// IsDataSource reports whether err (or any error in its chain) is a DataSourceError.
func IsDataSource(err error) bool {
	var dse *DataSourceError
	return errors.As(err, &dse)
}

// IsSchema reports whether err (or any error in its chain) is a SchemaError.
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
