package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/utils"
)

// exportFile is the on-disk shape of a reminders export.
type exportFile struct {
	// Authorized is false when the provider revoked access; absent means granted.
	Authorized *bool                `yaml:"authorized,omitempty"`
	Reminders  []models.ForeignItem `yaml:"reminders"`
}

// FileSource reads reminders from a YAML export and writes stamps back to it.
// A missing, unreadable or deauthorized export is reported as access denied.
type FileSource struct {
	path   string
	mu     sync.Mutex
	staged map[string]models.ForeignItem
	order  []string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		staged: make(map[string]models.ForeignItem),
	}
}

func (f *FileSource) Path() string { return f.path }

func (f *FileSource) load() (exportFile, error) {
	var export exportFile
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			return export, fmt.Errorf("%w: %v", apperrors.ErrAccessDenied, err)
		}
		return export, fmt.Errorf("failed to read reminders export: %w", err)
	}
	if err := yaml.Unmarshal(data, &export); err != nil {
		return export, fmt.Errorf("failed to parse reminders export: %w", err)
	}
	if export.Authorized != nil && !*export.Authorized {
		return export, fmt.Errorf("%w: export marked unauthorized", apperrors.ErrAccessDenied)
	}
	return export, nil
}

func (f *FileSource) FetchItems(ctx context.Context, p Predicate) ([]models.ForeignItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	export, err := f.load()
	if err != nil {
		return nil, err
	}
	return filter(export.Reminders, p), nil
}

// Save stages item for the next Commit.
func (f *FileSource) Save(ctx context.Context, item models.ForeignItem) error {
	if item.LocalID == "" {
		return fmt.Errorf("cannot save reminder without local id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.staged[item.LocalID]; !ok {
		f.order = append(f.order, item.LocalID)
	}
	f.staged[item.LocalID] = item
	return nil
}

// Commit merges staged items into the export and replaces the file atomically.
// Staged items with no matching reminder are an error and nothing is written.
// Staging is cleared whether or not the commit succeeds.
func (f *FileSource) Commit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.discard()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(f.staged) == 0 {
		return nil
	}

	export, err := f.load()
	if err != nil {
		return err
	}

	index := make(map[string]int, len(export.Reminders))
	for i, r := range export.Reminders {
		index[r.LocalID] = i
	}
	for _, id := range f.order {
		i, ok := index[id]
		if !ok {
			return fmt.Errorf("reminder %s no longer exists in export", id)
		}
		export.Reminders[i] = f.staged[id]
	}

	data, err := yaml.Marshal(&export)
	if err != nil {
		return fmt.Errorf("failed to marshal reminders export: %w", err)
	}
	return utils.WriteFileAtomic(f.path, data, 0o600)
}

func (f *FileSource) discard() {
	f.staged = make(map[string]models.ForeignItem)
	f.order = nil
}
