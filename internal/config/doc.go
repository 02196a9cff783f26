// Package config defines the settings used by the alarmee binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Watch follows the settings file and applies log level changes while the
// server runs; every other field needs a restart.
package config
