// Package config loads the barstatus settings file (YAML or JSON, strictly
// decoded over built-in defaults), watches it for live changes and reads the
// feature list.
package config
