// Package retention prunes old audit records on a schedule.
//
// Pruning never breaks the hash chain: the pruner resolves its cutoff
// to a sequence boundary and storage advances the chain anchor to
// that boundary atomically with the delete. Pruned records can be
// archived to disk first.
package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/audit"
)

// Config holds configuration for retention pruning.
type Config struct {
	// MaxAge removes records older than this. Zero disables age
	// pruning.
	MaxAge time.Duration `yaml:"max_age"`

	// MaxRecords caps the trail length; the oldest records beyond the
	// cap are removed. Zero disables count pruning.
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveDir, when set, receives a JSON file of the pruned
	// records before they are deleted.
	ArchiveDir string `yaml:"archive_dir"`

	// Schedule is a cron expression for automatic pruning.
	Schedule string `yaml:"schedule"`
}

// DefaultConfig returns a Config with sensible defaults: keep ninety
// days of records and prune nightly.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:   90 * 24 * time.Hour,
		Schedule: "0 3 * * *",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records must not be negative")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}

// Result describes one pruning pass.
type Result struct {
	// Removed is the number of records deleted.
	Removed int64

	// AnchorSeq is the chain anchor after the pass.
	AnchorSeq int64

	// ArchivePath is the archive file written, or empty when nothing
	// was archived.
	ArchivePath string
}

// Pruner removes records past the retention limits.
type Pruner struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a new pruner.
func NewPruner(storage audit.Storage, config *Config) (*Pruner, error) {
	if storage == nil {
		return nil, audit.NewRetentionError("new", fmt.Errorf("storage is nil"))
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, audit.NewRetentionError("new", err)
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit-retention"),
	}, nil
}

// Prune applies the age and count limits once. When both limits
// apply, the higher boundary wins.
func (p *Pruner) Prune(ctx context.Context) (*Result, error) {
	anchor, err := p.storage.Anchor(ctx)
	if err != nil {
		return nil, audit.NewRetentionError("prune", err)
	}

	boundary, err := p.boundarySeq(ctx)
	if err != nil {
		return nil, err
	}
	if boundary <= anchor.Seq {
		return &Result{AnchorSeq: anchor.Seq}, nil
	}

	var archivePath string
	if p.config.ArchiveDir != "" {
		// Records are gap-free and List returns ascending order, so
		// the victims are exactly the first boundary-anchor records.
		victims, err := p.storage.List(ctx, &audit.Query{Limit: int(boundary - anchor.Seq)})
		if err != nil {
			return nil, audit.NewRetentionError("archive", err)
		}
		archivePath, err = p.archive(victims, boundary)
		if err != nil {
			return nil, err
		}
	}

	removed, err := p.storage.PruneToSeq(ctx, boundary)
	if err != nil {
		return nil, audit.NewRetentionError("prune", err)
	}

	p.logger.Info("retention pass complete",
		"removed", removed,
		"anchor_seq", boundary,
		"archive", archivePath)
	return &Result{
		Removed:     removed,
		AnchorSeq:   boundary,
		ArchivePath: archivePath,
	}, nil
}

// boundarySeq resolves the retention limits to the highest sequence
// that should be pruned, or zero when nothing qualifies.
func (p *Pruner) boundarySeq(ctx context.Context) (int64, error) {
	var boundary int64

	if p.config.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-p.config.MaxAge)
		expired, err := p.storage.List(ctx, &audit.Query{EndTime: &cutoff})
		if err != nil {
			return 0, audit.NewRetentionError("prune", err)
		}
		if len(expired) > 0 {
			boundary = expired[len(expired)-1].Seq
		}
	}

	if p.config.MaxRecords > 0 {
		total, err := p.storage.Count(ctx, nil)
		if err != nil {
			return 0, audit.NewRetentionError("prune", err)
		}
		if excess := total - p.config.MaxRecords; excess > 0 {
			oldest, err := p.storage.List(ctx, &audit.Query{Limit: int(excess)})
			if err != nil {
				return 0, audit.NewRetentionError("prune", err)
			}
			if len(oldest) > 0 && oldest[len(oldest)-1].Seq > boundary {
				boundary = oldest[len(oldest)-1].Seq
			}
		}
	}
	return boundary, nil
}

func (p *Pruner) archive(records []*audit.Record, boundary int64) (string, error) {
	if err := os.MkdirAll(p.config.ArchiveDir, 0o755); err != nil {
		return "", audit.NewRetentionError("archive", err)
	}

	name := fmt.Sprintf("audit-archive-%s-seq%d.json",
		time.Now().UTC().Format("20060102T150405Z"), boundary)
	path := filepath.Join(p.config.ArchiveDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", audit.NewRetentionError("archive", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", audit.NewRetentionError("archive", err)
	}
	if err := f.Sync(); err != nil {
		return "", audit.NewRetentionError("archive", err)
	}
	return path, nil
}
