// Package config handles loading and validating the Velux binding service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The velux.settings section is deliberately left as a flat map of strings.
// It is the same bag the binding receives on live reconfiguration (MQTT,
// HTTP, SIGHUP), so it is parsed in exactly one place: the binding's
// reconciler.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - GRAYLOGIC_VELUX_PASSWORD overrides velux.settings.bridgePassword
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
