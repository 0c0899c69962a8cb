package ics

import (
	"strconv"
	"strings"

	"kakaocal/internal/model"
)

// EscapeCSV quotes v when it contains a quote, comma or newline, doubling
// internal quotes.
func EscapeCSV(v string) string {
	escaped := strings.ReplaceAll(v, `"`, `""`)
	if strings.ContainsAny(v, "\",\n") {
		return `"` + escaped + `"`
	}
	return escaped
}

// ToCSV joins rows of escaped fields with commas and rows with CRLF.
func ToCSV(rows [][]string) string {
	out := make([]string, len(rows))
	for i, row := range rows {
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = EscapeCSV(v)
		}
		out[i] = strings.Join(fields, ",")
	}
	return strings.Join(out, crlf)
}

// SummaryRows renders one CSV row per group, preceded by a header row.
func SummaryRows(groups []model.Group) [][]string {
	rows := [][]string{{"Entry Date", "Sender", "Subject", "Message Count", "Entry ID"}}
	for _, g := range groups {
		rows = append(rows, []string{
			g.DisplayDay,
			g.Sender,
			Subject(g),
			strconv.Itoa(len(g.Messages)),
			g.ID,
		})
	}
	return rows
}
