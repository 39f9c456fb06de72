// Package ingest reads datasets in the line format
//
//	<key> <v1> <v2> ... <vD>
//
// with whitespace-separated fields, one item per line.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/clustering"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
)

// maxLineBytes bounds a single record; wide vectors need more than bufio's
// 64 KiB default.
const maxLineBytes = 16 << 20

// Reader parses datasets. The zero value is not usable; use NewReader.
type Reader struct {
	logger *slog.Logger
}

func NewReader() *Reader {
	return &Reader{logger: slog.Default().With("component", "dataset-reader")}
}

// ReadFile reads the dataset at path. An empty path or "-" reads stdin.
func (r *Reader) ReadFile(path string) (*clustering.Dataset, error) {
	if path == "" || path == "-" {
		return r.Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening dataset %s: %w", apperrors.ErrInputUnavailable, path, err)
	}
	defer f.Close()
	ds, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses every record of src. Blank lines are skipped. Any malformed
// record aborts the read; no partial dataset is returned.
func (r *Reader) Read(src io.Reader) (*clustering.Dataset, error) {
	b := clustering.NewBuilder()
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		key, vec, err := parseRecord(fields)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrMalformedRecord, "line %d: %v", lineNo, err)
		}
		if b.Add(key, vec) {
			r.logger.Warn("duplicate key, keeping the later vector", "key", key, "line", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning line %d: %w", apperrors.ErrInputUnavailable, lineNo+1, err)
	}

	ds := b.Build()
	lo, hi := ds.Dimensions()
	r.logger.Info("dataset loaded",
		"items", ds.Len(),
		"lines", lineNo,
		"min_dims", lo,
		"max_dims", hi,
	)
	return ds, nil
}

func parseRecord(fields []string) (string, []float64, error) {
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("item %q has no numeric fields", fields[0])
	}
	vec := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return "", nil, fmt.Errorf("item %q field %d: %q is not a number", fields[0], i+1, f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", nil, fmt.Errorf("item %q field %d: %q is not finite", fields[0], i+1, f)
		}
		vec[i] = v
	}
	return fields[0], vec, nil
}
