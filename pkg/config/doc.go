// Package config loads the mesonlint configuration file.
//
// The file is YAML. Every key is optional; missing keys keep the values of
// Default. Example:
//
//	analysis:
//	  disable_name_linting: true
//	  disable_os_family_linting: true
//	registry: builtins-1.3.yaml
//	subprojects:
//	  concurrency: 4
//	store:
//	  path: .mesonlint/history.db
//	telemetry:
//	  logging:
//	    level: debug
//	  metrics:
//	    enabled: true
//	    listen_address: ":9464"
//
// Load validates the result with go-playground/validator struct tags.
package config
