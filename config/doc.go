// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Environment variables (optionally from a .env file) override sink settings
// so deployments can point the same config at different backends.
package config
