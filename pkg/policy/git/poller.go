package git

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// ReloadFunc reloads policies from the given directory. Returning an error
// keeps the previous snapshot serving; the poller will retry on the next
// interval.
type ReloadFunc func(policyDir string) error

// Poller re-pulls the policy repository on an interval and triggers a
// reload when HEAD moves and policy files were among the changes.
type Poller struct {
	repo     *Repository
	interval time.Duration
	reload   ReloadFunc
	logger   *slog.Logger
}

// NewPoller creates a poller for the repository.
func NewPoller(repo *Repository, interval time.Duration, reload ReloadFunc) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		repo:     repo,
		interval: interval,
		reload:   reload,
		logger:   slog.Default().With("component", "policy-git"),
	}
}

// Run polls until the context is cancelled. It is intended to run in its
// own goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("policy repository poller started",
		"interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("policy repository poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	result, err := p.repo.Pull(ctx)
	if err != nil {
		p.logger.Error("policy repository pull failed", "error", err)
		return
	}
	if !result.HadChanges {
		return
	}
	if !p.touchesPolicies(result.ChangedFiles) {
		p.logger.Debug("commit contained no policy changes",
			"from", result.FromSHA,
			"to", result.ToSHA)
		return
	}

	p.logger.Info("policy repository changed, reloading",
		"from", result.FromSHA,
		"to", result.ToSHA,
		"changed_files", len(result.ChangedFiles))

	if err := p.reload(p.repo.PolicyDir()); err != nil {
		p.logger.Error("policy reload failed, previous snapshot still serving",
			"error", err)
	}
}

// touchesPolicies reports whether any changed file is a policy file inside
// the configured policy path.
func (p *Poller) touchesPolicies(files []string) bool {
	prefix := p.repo.config.Path
	for _, f := range files {
		if prefix != "" && !strings.HasPrefix(f, prefix) {
			continue
		}
		switch strings.ToLower(filepath.Ext(f)) {
		case ".yaml", ".yml":
			return true
		}
	}
	return false
}
