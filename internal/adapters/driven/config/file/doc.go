// Package file keeps the user's settings and prompt overrides under the
// gdprqa config directory: settings in config.toml, and one text file
// per prompt whose absence means the built-in template.
package file
