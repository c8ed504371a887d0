package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
)

// ReadPenalty parses the penalty recorded on the first line of a solution
// file, formatted "# Penalty = <float>"
func ReadPenalty(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open solution %s: %v: %w", path, err, ErrIOFailure)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("solution %s: empty file: %w", path, ErrBadFormat)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 4 {
		return 0, fmt.Errorf("solution %s: bad penalty line %q: %w", path, scanner.Text(), ErrBadFormat)
	}
	penalty, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return 0, fmt.Errorf("solution %s: penalty %q: %w", path, fields[3], ErrBadFormat)
	}
	return penalty, nil
}

// ReadTowerCount parses the tower count from the second line of a solution
// file
func ReadTowerCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open solution %s: %v: %w", path, err, ErrIOFailure)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() || !scanner.Scan() {
		return 0, fmt.Errorf("solution %s: missing tower count: %w", path, ErrBadFormat)
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, fmt.Errorf("solution %s: tower count %q: %w", path, scanner.Text(), ErrBadFormat)
	}
	return count, nil
}

// SolutionWriter persists improved placements to one solution file under
// the read-compare-write protocol: an existing file is overwritten only if
// the candidate penalty is strictly lower than the one stored in it.
// Concurrent improving writers can race, but every write improves on what
// the writer last read, so the stored penalty never regresses past what a
// later cycle will fix.
type SolutionWriter struct {
	Path string
}

// Persist writes the grid's placement if it beats the stored one.
// Returns true when a write happened.
func (w *SolutionWriter) Persist(g *grid.Grid) (bool, error) {
	candidate := g.Penalty()

	if _, statErr := os.Stat(w.Path); statErr == nil {
		existing, err := ReadPenalty(w.Path)
		if err == nil {
			if candidate >= existing {
				return false, nil
			}
		} else {
			// Unreadable or malformed files lose to any feasible candidate.
			logger.Warn("replacing unreadable solution file", "path", w.Path, "error", err)
		}
	}

	if dir := filepath.Dir(w.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create solution dir %s: %v: %w", dir, err, ErrIOFailure)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Penalty = %v\n", candidate)
	towers := g.Towers()
	fmt.Fprintf(&b, "%d\n", len(towers))
	for _, t := range towers {
		b.WriteString(t.FileString())
		b.WriteString("\n")
	}
	if err := os.WriteFile(w.Path, []byte(b.String()), 0o644); err != nil {
		return false, fmt.Errorf("write solution %s: %v: %w", w.Path, err, ErrIOFailure)
	}
	return true, nil
}
