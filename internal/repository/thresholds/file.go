package thresholds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/domain/air"
)

// Repository defines persistence operations for thresholds.
type Repository interface {
	// Load applies the stored values on top of base.
	Load(ctx context.Context, base air.Thresholds) (air.Thresholds, error)
	// Save stores a complete threshold set.
	Save(ctx context.Context, t air.Thresholds) error
}

// ErrNotFound is returned when nothing has been saved yet.
var ErrNotFound = errors.New("thresholds not found")

// FileRepository stores thresholds as JSON on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON file.
	path string
	// decoder validates stored fields like inbound thresholds messages.
	decoder *command.Router
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// NewFileRepository creates a repository reading and writing JSON at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path:    filepath.Clean(path),
		decoder: command.NewRouter(command.Topics{}),
	}
}

// Load reads the file and applies every valid field on top of base. Invalid
// fields keep the base value and are reported through a joined error that
// wraps air.ErrValidationRejected alongside the partially applied result.
func (r *FileRepository) Load(_ context.Context, base air.Thresholds) (air.Thresholds, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, ErrNotFound
		}

		return base, fmt.Errorf("read thresholds file: %w", err)
	}

	var fields structpb.Struct
	if err = protojson.Unmarshal(contents, &fields); err != nil {
		return base, fmt.Errorf("decode thresholds file: %w: %w", air.ErrDecode, err)
	}

	cmd, err := r.decoder.DecodeThresholds(&fields)
	if err != nil {
		return base, fmt.Errorf("decode thresholds file: %w", err)
	}

	result := base
	if _, err = result.Apply(cmd.Thresholds); err != nil {
		return base, fmt.Errorf("apply stored thresholds: %w", err)
	}

	if len(cmd.Rejected) > 0 {
		return result, fmt.Errorf("%w: stored fields %v", air.ErrValidationRejected, cmd.Rejected)
	}

	return result, nil
}

// Save writes the thresholds atomically.
func (r *FileRepository) Save(_ context.Context, t air.Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate thresholds: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(command.ThresholdsToStruct(t))
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write thresholds file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("replace thresholds file: %w", err)
	}

	return nil
}
