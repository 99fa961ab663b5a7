package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/unit"
)

const (
	// descriptorSuffix is the flat-file discovery convention.
	descriptorSuffix = ".unit.hcl"
	// descriptorName is the per-subdirectory discovery convention.
	descriptorName = "unit.hcl"
	// templateBase is the reserved template file that is never a unit.
	templateBase = "base" + descriptorSuffix
)

// Warning records a descriptor that was skipped during discovery. Skipped
// descriptors never abort the scan.
type Warning struct {
	File string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.File, w.Err)
}

// Scan walks the given directory and produces the set of discoverable unit
// specs. A missing directory yields an empty result, not an error. The
// returned specs are sorted by priority (higher first), then name, and are
// unique by name; duplicate declarations are skipped with a warning.
func Scan(ctx context.Context, dir string) ([]*unit.Spec, []Warning, error) {
	logger := ctxlog.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Warn("Units directory does not exist, nothing to discover.", "path", dir)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read units directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			candidate := filepath.Join(dir, entry.Name(), descriptorName)
			if _, err := os.Stat(candidate); err == nil {
				files = append(files, candidate)
			}
			continue
		}
		name := entry.Name()
		if name == templateBase {
			continue
		}
		if strings.HasSuffix(name, descriptorSuffix) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	logger.Debug("Descriptor discovery complete.", "path", dir, "files", len(files))

	parser := hclparse.NewParser()
	seen := make(map[string]string)
	var specs []*unit.Spec
	var warnings []Warning

	for _, file := range files {
		parsed, err := parseDescriptor(parser, file)
		if err != nil {
			logger.Warn("Skipping malformed descriptor.", "file", file, "error", err)
			warnings = append(warnings, Warning{File: file, Err: err})
			continue
		}
		for _, spec := range parsed {
			if prev, dup := seen[spec.Name]; dup {
				err := fmt.Errorf("unit '%s' already declared in %s", spec.Name, prev)
				logger.Warn("Skipping duplicate unit declaration.", "file", file, "error", err)
				warnings = append(warnings, Warning{File: file, Err: err})
				continue
			}
			seen[spec.Name] = file
			specs = append(specs, spec)
		}
	}

	sort.SliceStable(specs, func(i, j int) bool {
		if specs[i].Priority != specs[j].Priority {
			return specs[i].Priority > specs[j].Priority
		}
		return specs[i].Name < specs[j].Name
	})

	logger.Info("Unit discovery finished.", "specs", len(specs), "warnings", len(warnings))
	return specs, warnings, nil
}
