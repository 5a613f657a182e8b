package rates

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// HistoryResponse is the raw payload of the SELIC target history endpoint.
type HistoryResponse struct {
	Conteudo []HistoryRecord `json:"conteudo"`
}

// HistoryRecord is one COPOM decision as published upstream.
// MetaSelic can be a number, a string, or null; it is kept raw for lenient parsing.
type HistoryRecord struct {
	NumeroReuniaoCopom int             `json:"NumeroReuniaoCopom"`
	DataInicioVigencia string          `json:"DataInicioVigencia"`
	DataFimVigencia    *string         `json:"DataFimVigencia"`
	MetaSelic          json.RawMessage `json:"MetaSelic"`
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
}

// parseDate accepts the timestamp and date encodings seen in the history feed.
func parseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// parseRate parses the polymorphic MetaSelic field.
// Handles numbers (13.75) and strings ("13,75" or "13.75").
// ok is false for null or absent values.
func parseRate(raw json.RawMessage) (rate float64, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, err
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
