package decode

import (
	"strings"

	"github.com/dgallion1/notetree/internal/content"
	"github.com/dgallion1/notetree/internal/store"
)

// ExtractTable puts stored rows into logical order. The header is stored
// last; it moves to the front and the remaining rows keep their order.
// Rows are not padded or truncated to the header's width.
func ExtractTable(stored [][]string) [][]string {
	if len(stored) == 0 {
		return nil
	}
	out := make([][]string, 0, len(stored))
	out = append(out, stored[len(stored)-1])
	return append(out, stored[:len(stored)-1]...)
}

func tableBlock(aux store.Aux) *content.Table {
	return &content.Table{
		Rows:          ExtractTable(aux.Rows),
		ColMin:        aux.ColMin,
		ColMax:        aux.ColMax,
		ColWidths:     aux.ColWidths,
		Justification: aux.Justification,
		IsLight:       aux.IsLight,
	}
}

// tableText flattens a table header first: cells separated by a space, rows
// by a newline.
func tableText(rows [][]string) string {
	var sb strings.Builder
	for i, row := range ExtractTable(rows) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Join(row, " "))
	}
	return sb.String()
}
