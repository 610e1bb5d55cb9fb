package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var exportMu sync.Mutex

// ExportTurn appends a resolved turn to a text file
func ExportTurn(res TurnResult, filename string) error {
	exportMu.Lock()
	defer exportMu.Unlock()

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	turn := res.TurnNumber - 1
	sb.WriteString(fmt.Sprintf("Session %s - Turn %d (%s)\n", res.SessionID, turn, res.ResolutionID))
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	if res.TimedOut {
		sb.WriteString("Closed by timeout\n")
	}
	for _, line := range res.Log {
		sb.WriteString(fmt.Sprintf("- %s\n", line))
	}
	st := res.State
	sb.WriteString(fmt.Sprintf("\nA: health %d, energy %d\n", st.HealthA, st.EnergyA))
	sb.WriteString(fmt.Sprintf("B: health %d, energy %d\n", st.HealthB, st.EnergyB))
	sb.WriteString(fmt.Sprintf("Took %dms\n\n", res.TurnDurationMs))

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
