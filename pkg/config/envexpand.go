package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references in YAML content using the
// standard library's shell-style expansion. Missing variables expand to
// the empty string; validation is expected to catch any required field
// left empty by a missing variable.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
