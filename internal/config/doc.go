// Package config defines the configuration for spritescan, including
// default values, validation, and the .spritescan YAML file loader.
package config
