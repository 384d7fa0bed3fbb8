// Package config loads environment-based configuration into an explicit
// struct handed to component constructors at startup. No ambient globals.
package config
