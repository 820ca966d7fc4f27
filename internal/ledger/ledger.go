package ledger

import (
	"bufio"
	"os"
	"strings"

	"stubborn-archivist/internal/models"
)

// Ledger is the fixed, ordered list of URLs to process. It is read-only
// input: loaded once at the start of an execution and never mutated.
// Duplicate URLs are kept as-is; the runner's skip check makes later
// occurrences no-ops.
type Ledger struct {
	items []models.WorkItem
}

// Load reads a ledger file with one URL per line. Blank lines are skipped;
// surrounding whitespace is trimmed.
func Load(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []models.WorkItem
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		items = append(items, models.WorkItem{ID: line, Index: len(items)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Ledger{items: items}, nil
}

// FromIDs builds an in-memory ledger (tests, ad-hoc runs).
func FromIDs(ids []string) *Ledger {
	items := make([]models.WorkItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, models.WorkItem{ID: id, Index: len(items)})
	}
	return &Ledger{items: items}
}

// Len returns the number of items in the ledger.
func (l *Ledger) Len() int {
	return len(l.items)
}

// LastIndex returns the highest valid index, or -1 for an empty ledger.
func (l *Ledger) LastIndex() int {
	return len(l.items) - 1
}

// Item returns the item at index i.
func (l *Ledger) Item(i int) models.WorkItem {
	return l.items[i]
}
