// Package config loads the seqpack CLI configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file,
// SEQPACK_* environment variables (dots become underscores, so
// packer.capacity is SEQPACK_PACKER_CAPACITY) and bound command line flags.
package config
