package en1545

import (
	"fmt"
	"strings"
	"time"
)

// WriteFields writes one line per decoded leaf of f, in layout order.
// Lines are joined with newlines without a trailing one; if the builder
// already holds text, a newline separates the new block from it. Fields
// absent from p (optional fields that did not fit) are skipped.
func WriteFields(sb *strings.Builder, prefix string, f Field, p Parsed) {
	var lines []string

	Walk(f, func(leaf *FixedInteger) {
		v, ok := p[leaf.name]
		if !ok {
			return
		}
		lines = append(lines, fmt.Sprintf("    - %s.%s: %s", prefix, leaf.name, formatLeaf(leaf, v)))
	})

	if len(lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

func formatLeaf(leaf *FixedInteger, v int) string {
	switch leaf.kind {
	case KindDate:
		return fmt.Sprintf("%d (Date: %s)", v, DateToTime(v, time.UTC).Format("2006-01-02"))
	case KindTimeLocal:
		return fmt.Sprintf("%d (Time: %02d:%02d)", v, v/60, v%60)
	case KindDateTimeLocal:
		return fmt.Sprintf("%d (DateTime: %s)", v, DateTimeLocalToTime(v, time.UTC).Format("2006-01-02 15:04:05"))
	default:
		width := (leaf.width + 3) / 4
		return fmt.Sprintf("%0*X (Dec: %d)", width, v, v)
	}
}
