// Package instancefile reads problem instances and reads/writes solutions
// in the plain-text layout used by the instance generator.
//
// Input:
//
//	N
//	H
//	location names (N, space separated)
//	home names (H)
//	depot name
//	N rows of N weights, "x" for no edge
//
// Output:
//
//	route names
//	dropoff count
//	one line per dropoff: location followed by the homes of its riders
package instancefile

import (
	"bufio"
	"dropoff-route-service/internal/domain"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NoEdgeToken marks a missing edge in an adjacency row.
const NoEdgeToken = "x"

// Parse reads one instance. Every format problem is an ErrMalformedInstance.
func Parse(r io.Reader, name string) (*domain.Instance, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("parse instance %s: %w", name, err)
	}
	if len(lines) < 5 {
		return nil, malformed(name, "expected at least 5 lines, got %d", len(lines))
	}

	n, err := parseCount(lines[0])
	if err != nil {
		return nil, malformed(name, "location count: %v", err)
	}
	h, err := parseCount(lines[1])
	if err != nil {
		return nil, malformed(name, "home count: %v", err)
	}

	locations := lines[2]
	if len(locations) != n {
		return nil, malformed(name, "declared %d locations, listed %d", n, len(locations))
	}
	homes := lines[3]
	if len(homes) != h {
		return nil, malformed(name, "declared %d homes, listed %d", h, len(homes))
	}
	if len(lines[4]) != 1 {
		return nil, malformed(name, "depot line must hold one name")
	}
	depot := lines[4][0]

	rows := lines[5:]
	if len(rows) != n {
		return nil, malformed(name, "expected %d adjacency rows, got %d", n, len(rows))
	}

	adjacency := make([][]float64, n)
	for i, fields := range rows {
		if len(fields) != n {
			return nil, malformed(name, "adjacency row %d has %d entries, want %d", i, len(fields), n)
		}
		adjacency[i] = make([]float64, n)
		for j, tok := range fields {
			if tok == NoEdgeToken {
				adjacency[i][j] = domain.NoEdge
				continue
			}
			w, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, malformed(name, "adjacency (%d,%d): %q is not a weight", i, j, tok)
			}
			adjacency[i][j] = w
		}
	}

	return domain.NewInstance(name, locations, homes, depot, adjacency)
}

// ReadSolution reads a route and assignment written for in. Dropoffs list
// home names, one per rider.
func ReadSolution(r io.Reader, in *domain.Instance) (*domain.Solution, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read solution %s: %w", in.Name, err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("read solution %s: expected at least 2 lines, got %d", in.Name, len(lines))
	}

	route := make(domain.Route, 0, len(lines[0]))
	for _, loc := range lines[0] {
		i, ok := in.Index(loc)
		if !ok {
			return nil, fmt.Errorf("read solution %s: unknown location %q in route", in.Name, loc)
		}
		route = append(route, i)
	}

	if len(lines[1]) != 1 {
		return nil, fmt.Errorf("read solution %s: dropoff count line must hold one number", in.Name)
	}
	count, err := parseCount(lines[1])
	if err != nil {
		return nil, fmt.Errorf("read solution %s: dropoff count: %w", in.Name, err)
	}
	if len(lines)-2 != count {
		return nil, fmt.Errorf("read solution %s: declared %d dropoffs, listed %d", in.Name, count, len(lines)-2)
	}

	dropoffs := make(domain.Assignment, count)
	for _, fields := range lines[2:] {
		if len(fields) == 0 {
			return nil, fmt.Errorf("read solution %s: blank dropoff line", in.Name)
		}
		idx := make([]int, 0, len(fields))
		for _, loc := range fields {
			i, ok := in.Index(loc)
			if !ok {
				return nil, fmt.Errorf("read solution %s: unknown location %q in dropoffs", in.Name, loc)
			}
			idx = append(idx, i)
		}
		dropoffs[idx[0]] = append(dropoffs[idx[0]], idx[1:]...)
	}

	return &domain.Solution{Route: route, Dropoffs: dropoffs}, nil
}

// readLines splits input into whitespace-separated fields per line. Blank
// lines are kept (an instance without riders has an empty home line) except
// at the end of the input.
func readLines(r io.Reader) ([][]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out [][]string
	for sc.Scan() {
		out = append(out, strings.Fields(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func parseCount(fields []string) (int, error) {
	if len(fields) != 1 {
		return 0, fmt.Errorf("expected one number, got %d fields", len(fields))
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}

func malformed(name, format string, args ...any) error {
	return fmt.Errorf("parse instance %s: %w: %s", name, domain.ErrMalformedInstance, fmt.Sprintf(format, args...))
}
