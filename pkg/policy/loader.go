package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Loader reads policy decisions from YAML files on disk.
type Loader struct {
	config *LoaderConfig
}

// LoaderConfig contains configuration for the policy loader.
type LoaderConfig struct {
	// MaxFileSize rejects policy files larger than this many bytes.
	// Default: 1 MiB
	MaxFileSize int64

	// Extensions is the list of file extensions treated as policy files.
	Extensions []string
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize: 1 << 20,
		Extensions:  []string{".yaml", ".yml"},
	}
}

// NewLoader creates a loader with the given configuration.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// LoadFile loads and validates a single policy file.
func (l *Loader) LoadFile(path string) (*Decision, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, "file not found", err)
		}
		if os.IsPermission(err) {
			return nil, NewLoadError(path, "permission denied", err)
		}
		return nil, NewLoadError(path, "failed to access file", err)
	}
	if !info.Mode().IsRegular() {
		return nil, NewLoadError(path, "not a regular file", nil)
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, NewLoadError(path,
			fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, "failed to read file", err)
	}
	if !utf8.Valid(data) {
		return nil, NewLoadError(path, "file contains invalid UTF-8 encoding", nil)
	}

	var decision Decision
	if err := yaml.Unmarshal(data, &decision); err != nil {
		return nil, NewLoadError(path, "YAML parsing failed", err)
	}
	if err := decision.Validate(); err != nil {
		return nil, NewLoadError(path, "validation failed", err)
	}

	return &decision, nil
}

// LoadDir loads every policy file in the directory tree rooted at dir.
// Hidden files and directories are skipped. A duplicate intent across files
// fails the whole load.
func (l *Loader) LoadDir(dir string) ([]*Decision, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(dir, "directory not found", err)
		}
		return nil, NewLoadError(dir, "failed to access directory", err)
	}
	if !info.IsDir() {
		return nil, NewLoadError(dir, "not a directory", nil)
	}

	var decisions []*Decision
	byIntent := make(map[string]string) // intent → file that defined it

	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != dir {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !l.hasPolicyExtension(path) {
			return nil
		}

		decision, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		if prev, dup := byIntent[decision.Intent]; dup {
			return NewLoadError(path,
				fmt.Sprintf("intent %q already defined in %s", decision.Intent, prev), nil)
		}
		byIntent[decision.Intent] = path
		decisions = append(decisions, decision)
		return nil
	})
	if walkErr != nil {
		var loadErr *LoadError
		if errors.As(walkErr, &loadErr) {
			return nil, walkErr
		}
		return nil, NewLoadError(dir, "directory walk failed", walkErr)
	}

	if len(decisions) == 0 {
		return nil, NewLoadError(dir, "no policy files found", nil)
	}
	return decisions, nil
}

func (l *Loader) hasPolicyExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
