// Package config provides configuration management for Ganymede.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GANYMEDE_SECTION_FIELD.
// For example:
//
//   - GANYMEDE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GANYMEDE_IDENTITY_JWT_SECRET overrides identity.jwt.secret
//   - GANYMEDE_SOURCES_CRM_DSN overrides sources.crm.dsn
//   - GANYMEDE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
// Source overrides exist for credential-bearing fields (url, bearer_token,
// dsn) so secrets can stay out of the file entirely.
//
// In addition, ${NAME} placeholders anywhere in the file are expanded from
// the environment at load time. Positional markers such as $1 in SQL
// queries are left untouched. An unset variable expands to the empty
// string, which required-field validation then reports.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., agent tokens, source connection strings)
//   - Range validation (e.g., sample ratios must be 0.0-1.0)
//   - Format validation (e.g., listen addresses, URLs, cron expressions)
//   - Logical validation (e.g., fan-out budget must fit the request timeout)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - identity.agents[0].token: agent token is required
//	  - sources.crm.dsn: dsn is required for postgres sources
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	identity:
//	  mode: "static"
//	  agents:
//	    - id: "loan-agent"
//	      token: "${LOAN_AGENT_TOKEN}"
//	      intents: ["loan_assessment"]
//
//	policy:
//	  mode: "dir"
//	  dir: "./policies"
//
//	sources:
//	  crm:
//	    type: "http"
//	    url: "https://crm.internal:8443"
//	    path_template: "/v1/customers/{key}"
//
//	audit:
//	  backend: "sqlite"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
