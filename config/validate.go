package config

import (
	"fmt"
	"strings"

	"github.com/abyssdigger/corelog"
)

// Validate checks a parsed Config. The returned error names the offending
// field, e.g. "outputs[1].path: required for file outputs".
func Validate(cfg *Config) error {
	if cfg.Level != "" {
		if _, err := corelog.ParseLevel(cfg.Level); err != nil {
			return fmt.Errorf("level: %w", err)
		}
	}
	if cfg.OpenRetries < 0 {
		return fmt.Errorf("open_retries: must be non-negative, got %d", cfg.OpenRetries)
	}

	for name, size := range cfg.Rings {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("rings: empty ring name")
		}
		if size < corelog.MIN_RINGBUF_SIZE {
			return fmt.Errorf("rings.%s: size must be at least %d, got %d", name, corelog.MIN_RINGBUF_SIZE, size)
		}
	}

	for key, linefmt := range cfg.Lines {
		if _, err := levelByName(key); err != nil {
			return fmt.Errorf("lines.%s: %w", key, err)
		}
		if len(linefmt)+1 > corelog.LINEFMT_MAX_SIZE {
			return fmt.Errorf("lines.%s: format is %d bytes long, max is %d", key, len(linefmt), corelog.LINEFMT_MAX_SIZE-1)
		}
	}

	for i := range cfg.Outputs {
		if err := validateOutput(cfg, &cfg.Outputs[i]); err != nil {
			return fmt.Errorf("outputs[%d].%w", i, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config, out *Output) error {
	if len(out.Levels) == 0 {
		return fmt.Errorf("levels: at least one level is required")
	}
	if _, err := LevelMask(out.Levels); err != nil {
		return fmt.Errorf("levels: %w", err)
	}

	switch out.Type {
	case TYPE_STREAM:
		switch out.Stream {
		case "", STREAM_STDOUT, STREAM_STDERR:
		default:
			return fmt.Errorf("stream: must be %s or %s, got %q", STREAM_STDOUT, STREAM_STDERR, out.Stream)
		}
	case TYPE_FILE:
		if out.Path == "" {
			return fmt.Errorf("path: required for file outputs")
		}
	case TYPE_RING:
		if out.Ring == "" {
			return fmt.Errorf("ring: required for ring outputs")
		}
		if _, ok := cfg.Rings[out.Ring]; !ok {
			return fmt.Errorf("ring: %q is not declared in rings", out.Ring)
		}
	case TYPE_NONE:
	default:
		return fmt.Errorf("type: must be one of %s, %s, %s, %s, got %q",
			TYPE_STREAM, TYPE_FILE, TYPE_RING, TYPE_NONE, out.Type)
	}

	switch strings.ToLower(out.StripEscapes) {
	case "", STRIP_AUTO, STRIP_TRUE, STRIP_FALSE:
	default:
		return fmt.Errorf("strip_escapes: must be %s, %s or %s, got %q",
			STRIP_AUTO, STRIP_TRUE, STRIP_FALSE, out.StripEscapes)
	}
	return nil
}

// LevelMask converts level and group names to a mask.
func LevelMask(names []string) (mask corelog.LevelMask, err error) {
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case GROUP_STDOUT:
			mask |= corelog.MASK_STDOUT
		case GROUP_STDERR:
			mask |= corelog.MASK_STDERR
		case GROUP_ALL:
			mask |= corelog.MASK_ALL
		default:
			lvl, err := levelByName(name)
			if err != nil {
				return 0, err
			}
			mask |= corelog.Mask(lvl)
		}
	}
	return mask, nil
}

// levelByName accepts real levels only (no "disabled").
func levelByName(name string) (corelog.LogLevel, error) {
	lvl, err := corelog.ParseLevel(name)
	if err != nil {
		return 0, err
	}
	if !lvl.IsValid() {
		return 0, fmt.Errorf("%w: `%s` is not an emitting level", corelog.ErrUnknownLevel, name)
	}
	return lvl, nil
}
