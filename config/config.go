// Package config loads corelog settings from a YAML file and applies them to a
// *corelog.Logger.
//
// Example:
//
//	level: info
//	open_retries: 3
//	rings:
//	  recent: 65536
//	lines:
//	  error: "\x1b[31m[%m]\x1b[0m %s\n"
//	outputs:
//	  - levels: [stdout]
//	    type: stream
//	    stream: stdout
//	  - levels: [warn, error, fatal]
//	    type: file
//	    path: /var/log/app/errors.log
//	    append: true
//	  - levels: [trace, debug]
//	    type: ring
//	    ring: recent
package config

// Output type names accepted in the `type` field.
const (
	TYPE_STREAM = "stream"
	TYPE_FILE   = "file"
	TYPE_RING   = "ring"
	TYPE_NONE   = "none"
)

// Stream names accepted in the `stream` field.
const (
	STREAM_STDOUT = "stdout"
	STREAM_STDERR = "stderr"
)

// Values accepted in the `strip_escapes` field. Empty means STRIP_AUTO.
const (
	STRIP_AUTO  = "auto"
	STRIP_TRUE  = "true"
	STRIP_FALSE = "false"
)

// Level group names accepted in `levels` next to single level names.
const (
	GROUP_STDOUT = "stdout"
	GROUP_STDERR = "stderr"
	GROUP_ALL    = "all"
)

// Config is the top-level configuration file. Every section is optional: a
// missing section leaves the matching logger state unchanged.
type Config struct {
	// Level is the minimal level to emit (a level name, or "disabled").
	Level string `yaml:"level,omitempty"`

	// OpenRetries is how many times opening a file output is retried with
	// exponential backoff before giving up.
	OpenRetries int `yaml:"open_retries,omitempty"`

	// Rings declares named ring buffers with their size in bytes.
	Rings map[string]int `yaml:"rings,omitempty"`

	// Lines maps level names to line formats.
	Lines map[string]string `yaml:"lines,omitempty"`

	// Outputs is applied in order, so later entries override earlier ones
	// for the levels they share.
	Outputs []Output `yaml:"outputs,omitempty"`
}

// Output binds a set of levels to one destination.
type Output struct {
	Levels       []string `yaml:"levels"`
	Type         string   `yaml:"type"`
	Stream       string   `yaml:"stream,omitempty"`
	Path         string   `yaml:"path,omitempty"`
	Ring         string   `yaml:"ring,omitempty"`
	Append       bool     `yaml:"append,omitempty"`
	Copy         bool     `yaml:"copy,omitempty"`
	StripEscapes string   `yaml:"strip_escapes,omitempty"`
}
