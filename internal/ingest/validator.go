package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/clustering"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
)

// ValidationError lists every dataset problem found, keyed by check name.
type ValidationError struct {
	Problems map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Problems))
	for name := range e.Problems {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Problems[name]))
	}
	return strings.Join(parts, "; ")
}

// Validate checks a loaded dataset against the input settings. Mixed vector
// lengths are allowed unless StrictDimensions is set; the kernel then
// compares the shared prefix only.
func Validate(ds *clustering.Dataset, cfg config.InputConfig) error {
	problems := make(map[string]string)

	if cfg.StrictDimensions {
		if err := ds.CheckDimensions(); err != nil {
			problems["dimensions"] = err.Error()
		}
	}
	if cfg.MaxDimensions > 0 {
		if _, hi := ds.Dimensions(); hi > cfg.MaxDimensions {
			problems["max_dimensions"] = fmt.Sprintf("widest vector has %d dimensions, limit is %d", hi, cfg.MaxDimensions)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sentinel := apperrors.ErrMalformedRecord
	if _, ok := problems["dimensions"]; ok {
		sentinel = apperrors.ErrDimensionMismatch
	}
	return fmt.Errorf("%w: %w", sentinel, &ValidationError{Problems: problems})
}
