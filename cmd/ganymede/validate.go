package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/policy"
)

var validateFlags struct {
	policyDir string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and policy files",
	Long: `Validate the configuration file and the policy files it references.

The command loads the configuration with full validation, then parses and
validates every policy file in the policy directory: YAML syntax, required
fields, freshness grammar, and the rule that no redacted field appears in
a source allow-list. Nothing is started.

Examples:
  # Validate the default config and its policies
  ganymede validate

  # Validate a specific config
  ganymede validate --config /etc/ganymede/config.yaml

  # Validate a policy directory directly
  ganymede validate --policies ./policies`,
	RunE: validateAll,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.policyDir, "policies", "", "policy directory (overrides config)")
}

func validateAll(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)

	policyDir := validateFlags.policyDir
	if policyDir == "" {
		if cfg.Policy.Mode == "git" {
			fmt.Println("Policy mode is git; pass --policies to validate a local checkout.")
			return nil
		}
		policyDir = cfg.Policy.Dir
	}

	loader := policy.NewLoader(nil)
	decisions, err := loader.LoadDir(policyDir)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	engine := policy.NewEngine()
	if err := engine.Load(decisions); err != nil {
		return cli.NewCommandError("validate", err)
	}

	fmt.Printf("✓ Policies valid: %d intents in %s\n", len(decisions), policyDir)
	for _, decision := range decisions {
		fmt.Printf("  - %s (%s, %d sources, ttl %ds)\n",
			decision.Summary(),
			decision.Classification,
			len(decision.Sources),
			decision.TTLSeconds,
		)
	}

	return nil
}
