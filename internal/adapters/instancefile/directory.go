package instancefile

import (
	"bytes"
	"context"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/ports"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	InputExt  = ".in"
	OutputExt = ".out"
)

// Directory is a file-system implementation of the InstanceRepository
// port: <InputDir>/<name>.in in, <OutputDir>/<name>.out out.
type Directory struct {
	InputDir  string
	OutputDir string
}

var _ ports.InstanceRepository = (*Directory)(nil)

func NewDirectory(inputDir, outputDir string) *Directory {
	return &Directory{InputDir: inputDir, OutputDir: outputDir}
}

// NameOf turns an input file path into an instance name.
func NameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), InputExt)
}

func (d *Directory) ListInstances(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.InputDir, "*"+InputExt))
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, NameOf(m))
	}
	sort.Strings(names)
	return names, nil
}

func (d *Directory) LoadInstance(_ context.Context, name string) (*domain.Instance, error) {
	f, err := os.Open(filepath.Join(d.InputDir, name+InputExt))
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", name, err)
	}
	defer f.Close()

	return Parse(f, name)
}

func (d *Directory) LoadSolution(_ context.Context, in *domain.Instance) (*domain.Solution, error) {
	f, err := os.Open(d.outputPath(in.Name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load solution %s: %w", in.Name, err)
	}
	defer f.Close()

	return ReadSolution(f, in)
}

// SaveSolution replaces the output file atomically.
func (d *Directory) SaveSolution(_ context.Context, in *domain.Instance, sol *domain.Solution) error {
	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return fmt.Errorf("save solution %s: create output dir: %w", in.Name, err)
	}

	var buf bytes.Buffer
	if err := WriteSolution(&buf, in, sol); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.OutputDir, in.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save solution %s: create temp file: %w", in.Name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save solution %s: write: %w", in.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save solution %s: close: %w", in.Name, err)
	}
	if err := os.Rename(tmp.Name(), d.outputPath(in.Name)); err != nil {
		return fmt.Errorf("save solution %s: rename: %w", in.Name, err)
	}
	return nil
}

func (d *Directory) outputPath(name string) string {
	return filepath.Join(d.OutputDir, name+OutputExt)
}
