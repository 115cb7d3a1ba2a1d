// Package config provides configuration loading and validation for the session-fusion service.
// It combines a YAML configuration file with environment-sourced credentials and
// validates every section before the service starts.
package config
