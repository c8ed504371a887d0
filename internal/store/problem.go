// Package store reads problem instances and persists solutions as the
// whitespace-separated text files the rest of the toolchain expects.
package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
)

// LoadGrid reads a problem file and builds a grid from it. The file lists
// the city count, grid dimension, service radius, and penalty radius, then
// one "x y" line per city. Lines starting with '#' are skipped anywhere.
// The index may be nil; passing a shared one lets instances of the same
// size class reuse cached coverage sets.
func LoadGrid(path string, index *geometry.Index) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open problem %s: %v: %w", path, err, ErrIOFailure)
	}
	defer f.Close()

	tokens, err := scanTokens(f)
	if err != nil {
		return nil, fmt.Errorf("read problem %s: %v: %w", path, err, ErrIOFailure)
	}
	if len(tokens) < 4 {
		return nil, fmt.Errorf("problem %s: missing header: %w", path, ErrBadFormat)
	}

	header := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(tokens[i])
		if err != nil {
			return nil, fmt.Errorf("problem %s: header token %q: %w", path, tokens[i], ErrBadFormat)
		}
		header[i] = v
	}
	cityCount, dimension, serviceRadius, penaltyRadius := header[0], header[1], header[2], header[3]

	coords := tokens[4:]
	if len(coords) < 2*cityCount {
		return nil, fmt.Errorf("problem %s: expected %d cities, found %d coordinates: %w",
			path, cityCount, len(coords), ErrBadFormat)
	}

	g := grid.New(dimension, serviceRadius, penaltyRadius, index)
	for i := 0; i < cityCount; i++ {
		x, err := strconv.Atoi(coords[2*i])
		if err != nil {
			return nil, fmt.Errorf("problem %s: city %d x %q: %w", path, i, coords[2*i], ErrBadFormat)
		}
		y, err := strconv.Atoi(coords[2*i+1])
		if err != nil {
			return nil, fmt.Errorf("problem %s: city %d y %q: %w", path, i, coords[2*i+1], ErrBadFormat)
		}
		if err := g.AddCity(x, y); err != nil {
			return nil, fmt.Errorf("problem %s: city %d: %w", path, i, err)
		}
	}
	return g, nil
}

// scanTokens returns all whitespace-separated tokens outside comment lines
func scanTokens(f *os.File) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, strings.Fields(line)...)
	}
	return tokens, scanner.Err()
}
