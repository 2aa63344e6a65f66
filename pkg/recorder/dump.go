package recorder

import (
	"fmt"
	"io"

	"github.com/yairfalse/memtrace/pkg/domain"
)

// Dump writes a captured event buffer to w for debugging, one block per
// event in recorded order. Stack traces are included only when
// includeStackTraces is set.
func Dump(w io.Writer, events []domain.RecordedEvent, includeStackTraces bool) error {
	for _, event := range events {
		if _, err := fmt.Fprintf(w, "%s\n\n", event.Describe(includeStackTraces)); err != nil {
			return fmt.Errorf("failed to dump event: %w", err)
		}
	}
	return nil
}
