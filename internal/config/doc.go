// Package config loads the dashboard configuration.
//
// Values are resolved in order of precedence:
//
//	1. Environment variables (BALANCA_*)
//	2. YAML file (BALANCA_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Default()
//
// Nested sections map to underscore separated names, for example
// BALANCA_SERVER_PORT, BALANCA_DATA_SOURCE or BALANCA_DATA_EXPORT_FILES
// (comma separated list).
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
