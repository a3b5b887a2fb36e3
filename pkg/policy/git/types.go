package git

import "time"

// Config describes the policy repository to track.
type Config struct {
	// URL of the repository. Required.
	URL string

	// Branch to track. Required.
	Branch string

	// Path is the policy subdirectory inside the repository. Empty means
	// the repository root.
	Path string

	// LocalPath is the clone cache directory. Defaults to a directory
	// under the system temp dir.
	LocalPath string

	// CleanOnStart removes any existing clone before the first Clone.
	CleanOnStart bool

	// Depth enables shallow clones when positive.
	Depth int

	// Timeout bounds each network operation. Default: 60s.
	Timeout time.Duration

	// Auth selects the authentication method.
	Auth AuthConfig
}

// AuthConfig configures repository authentication.
type AuthConfig struct {
	// Type is "token", "ssh", or "none" (default).
	Type string

	// Token is the personal access token for HTTPS auth.
	Token string

	// SSHKeyPath is the private key file for SSH auth.
	SSHKeyPath string

	// SSHKeyPassphrase unlocks an encrypted SSH key. Optional.
	SSHKeyPassphrase string
}

// CommitInfo contains metadata about the commit a policy snapshot came from.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// PullResult describes the outcome of one pull.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
	HadChanges   bool
}
