// Package config loads piiscan configuration from local and global YAML files.
// CLI code layers them with flags: flag over local file over global file.
package config
