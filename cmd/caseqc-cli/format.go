package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/caseqc/client"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}
		fmt.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(id string) {
	fmt.Println(id)
}

func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	default:
		formatJSON(v)
	}
}

func shortTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func reviewRows(reviews []client.Review) [][]string {
	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, []string{r.ID, r.CaseID, r.ReviewerID, r.Status, strconv.FormatInt(r.Version, 10), shortTime(r.UpdatedAt)})
	}
	return rows
}

func outputReviews(reviews []client.Review, hasMore bool) {
	switch flagFmt {
	case "quiet":
		for _, r := range reviews {
			formatQuiet(r.ID)
		}
	case "table":
		formatTable([]string{"ID", "CASE", "REVIEWER", "STATUS", "VERSION", "UPDATED"}, reviewRows(reviews))
	default:
		formatJSON(map[string]any{"reviews": reviews, "has_more": hasMore})
	}
}

func outputChanges(entries []client.ChangeLogEntry, hasMore bool) {
	switch flagFmt {
	case "quiet":
		for _, e := range entries {
			formatQuiet(e.ID)
		}
	case "table":
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.ID, e.FieldName, e.PreviousValue, e.NewValue, e.AuthorID, shortTime(e.CreatedAt)})
		}
		formatTable([]string{"ID", "FIELD", "FROM", "TO", "AUTHOR", "AT"}, rows)
	default:
		formatJSON(map[string]any{"changes": entries, "has_more": hasMore})
	}
}

func outputAudit(entries []client.AuditEntry, hasMore bool) {
	switch flagFmt {
	case "quiet":
		for _, e := range entries {
			formatQuiet(strconv.FormatInt(e.ID, 10))
		}
	case "table":
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.Action, e.EntityID, e.Actor, e.StatusBefore, e.StatusAfter, shortTime(e.CreatedAt)})
		}
		formatTable([]string{"ID", "ACTION", "ENTITY", "ACTOR", "BEFORE", "AFTER", "AT"}, rows)
	default:
		formatJSON(map[string]any{"data": entries, "has_more": hasMore})
	}
}
