// Package ledger appends one PnL line per closed position to a file.
package ledger

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Ledger is an append-only results file. One line per closed position:
// "<timestamp> - <pnl%>".
type Ledger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// Open opens or creates the ledger file at path.
func Open(path string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{file: f, now: time.Now}, nil
}

// Record appends the realized PnL percentage of one closed position.
func (l *Ledger) Record(pnlPct float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s - %.2f%%\n", l.now().Format("2006-01-02 15:04:05"), pnlPct)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
