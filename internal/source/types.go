package source

import (
	"errors"
	"fmt"
)

// Column headers expected in the export.
const (
	ColumnDate        = "Data"
	ColumnInstitution = "Instituição"
	ColumnAmount      = "Valor"
)

var (
	// ErrInvalidAmount indicates a Valor cell that is not a pt-BR currency string.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate indicates a Data cell that is not DD/MM/YYYY.
	ErrInvalidDate = errors.New("invalid date")
	// ErrEmptyInstitution indicates a blank Instituição cell.
	ErrEmptyInstitution = errors.New("empty institution")
	// ErrMissingColumn indicates the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// ParseError reports the row and column that aborted an ingestion.
type ParseError struct {
	File   string // empty when parsing a reader
	Line   int    // 1-based, header is line 1
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	if e.Column == "" {
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
	return fmt.Sprintf("%s, column %s: %v (%q)", loc, e.Column, e.Err, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DiscoveredFile is a CSV export found while scanning a directory.
type DiscoveredFile struct {
	Path string
	Name string
}
