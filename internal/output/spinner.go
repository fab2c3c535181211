package output

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Spinner shows scan progress on a writer (typically stderr). It is safe
// for concurrent use and every method is a no-op once stopped.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	printer *pterm.SpinnerPrinter
}

// NewSpinner creates a spinner that writes to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start begins the spinner animation with the given message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printer != nil {
		return
	}
	printer, err := pterm.DefaultSpinner.
		WithWriter(s.w).
		WithRemoveWhenDone(true).
		Start(message)
	if err != nil {
		return
	}
	s.printer = printer
}

// Update changes the displayed message while the spinner is running.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printer != nil {
		s.printer.UpdateText(message)
	}
}

// Stop halts the spinner and clears its line. It is idempotent.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printer == nil {
		return
	}
	_ = s.printer.Stop()
	s.printer = nil
}
