// Package git materializes policy packs from a Git repository.
//
// Operators maintain intent policies as YAML files in a repository instead
// of a local directory; every policy change then arrives as a commit, which
// gives policy revisions the history and review trail the governance model
// expects. The Repository clones the configured branch into a local cache
// directory, and the Poller re-pulls on an interval, invoking a reload
// callback whenever HEAD moves and policy files changed.
//
// # Basic Usage
//
//	repo, err := git.NewRepository(&git.Config{
//		URL:    "https://git.example.com/governance/policies.git",
//		Branch: "main",
//		Path:   "intents",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := repo.Clone(ctx); err != nil {
//		log.Fatal(err)
//	}
//	decisions, err := loader.LoadDir(repo.PolicyDir())
//
// # Change Detection
//
//	poller := git.NewPoller(repo, 30*time.Second, func(dir string) error {
//		return reloadFrom(dir)
//	})
//	go poller.Run(ctx)
//
// # Authentication
//
// Token-based HTTPS, SSH public key, and anonymous access for public
// repositories.
package git
