// Package config loads YAML configuration for the control plane and the
// worker. Files are optional; every field has a sensible default, and a
// file only needs to name the keys it changes. Provider credentials are
// resolved from the environment, never from the file itself.
package config
