package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// InstancePath pairs one problem input file with its solution output file
type InstancePath struct {
	Size   string
	ID     int
	Input  string
	Output string
}

// ResolveSpecs expands instance specifiers into input/output path pairs.
// A specifier is either "<size>/<id>" for one instance or
// "<size>/<start>..<end>" for an inclusive range. Instance files are named
// by zero-padded three-digit ID, "small/7" resolving to
// "<inputs>/small/007.in" and "<outputs>/small/007.out".
func ResolveSpecs(inputsDir, outputsDir string, specs []string) ([]InstancePath, error) {
	var paths []InstancePath
	for _, spec := range specs {
		size, idPart, ok := strings.Cut(spec, "/")
		if !ok || size == "" || idPart == "" {
			return nil, fmt.Errorf("bad instance specifier %q, want <size>/<id> or <size>/<start>..<end>", spec)
		}

		start, end, err := parseIDRange(idPart)
		if err != nil {
			return nil, fmt.Errorf("bad instance specifier %q: %w", spec, err)
		}
		for id := start; id <= end; id++ {
			name := fmt.Sprintf("%03d", id)
			paths = append(paths, InstancePath{
				Size:   size,
				ID:     id,
				Input:  filepath.Join(inputsDir, size, name+".in"),
				Output: filepath.Join(outputsDir, size, name+".out"),
			})
		}
	}
	return paths, nil
}

func parseIDRange(idPart string) (int, int, error) {
	if first, second, ok := strings.Cut(idPart, ".."); ok {
		start, err := strconv.Atoi(first)
		if err != nil {
			return 0, 0, fmt.Errorf("range start %q is not an integer", first)
		}
		end, err := strconv.Atoi(second)
		if err != nil {
			return 0, 0, fmt.Errorf("range end %q is not an integer", second)
		}
		if start < 0 || end < start {
			return 0, 0, fmt.Errorf("range %d..%d is empty or negative", start, end)
		}
		return start, end, nil
	}
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return 0, 0, fmt.Errorf("id %q is not an integer", idPart)
	}
	if id < 0 {
		return 0, 0, fmt.Errorf("id %d is negative", id)
	}
	return id, id, nil
}
