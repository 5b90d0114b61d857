package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/mirror"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// UpdatesDir is the staging directory for new export files under the data root.
const UpdatesDir = "updates"

// ErrNoUpdates means the staging directory held no export files.
var ErrNoUpdates = errors.New("no staged updates")

// Outcomes of staging one update file.
const (
	UpdateApplied   = "applied"
	UpdateIdentical = "identical"
	UpdateReplaced  = "replaced"
)

// AppliedUpdate records what happened to one staged file.
type AppliedUpdate struct {
	Source  string
	Target  string
	Outcome string
	// Backup is set when a differing target was replaced.
	Backup string
}

// ApplyUpdates copies staged export files from <dataRoot>/updates/<group dir>/
// into the group directories. A target of the same size is treated as already
// applied. A target that differs is backed up to <target>.backup and then
// replaced.
func ApplyUpdates(dataRoot string, logger *slog.Logger) ([]AppliedUpdate, error) {
	root := filepath.Join(dataRoot, UpdatesDir)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("apply updates: %w", err)
	}

	var (
		applied []AppliedUpdate
		staged  int
	)
	for _, param := range domain.Parameters {
		sources, err := filepath.Glob(filepath.Join(root, param.ExportDir(), "*.csv"))
		if err != nil {
			return applied, fmt.Errorf("apply updates: %w", err)
		}
		slices.Sort(sources)
		staged += len(sources)
		for _, src := range sources {
			u, err := applyUpdate(src, filepath.Join(dataRoot, param.ExportDir(), filepath.Base(src)))
			if err != nil {
				return applied, fmt.Errorf("apply updates: %w", err)
			}
			logger.Info("staged update processed", "source", src, "target", u.Target, "outcome", u.Outcome)
			applied = append(applied, u)
		}
	}
	if staged == 0 {
		return nil, fmt.Errorf("apply updates from %s: %w", root, ErrNoUpdates)
	}
	return applied, nil
}

func applyUpdate(src, target string) (AppliedUpdate, error) {
	u := AppliedUpdate{Source: src, Target: target, Outcome: UpdateApplied}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return u, err
	}
	if dstInfo, err := os.Stat(target); err == nil {
		if dstInfo.Size() == srcInfo.Size() {
			u.Outcome = UpdateIdentical
			return u, nil
		}
		u.Backup = target + ".backup"
		if err := mirror.CopyFile(target, u.Backup); err != nil {
			return u, err
		}
		u.Outcome = UpdateReplaced
	} else if !errors.Is(err, os.ErrNotExist) {
		return u, err
	}

	if err := mirror.CopyFile(src, target); err != nil {
		return u, err
	}
	return u, nil
}
