package log

import "fmt"

// Config describes process-level logging settings, typically sourced from
// env vars or CLI flags.
type Config struct {
	// Level is one of debug|info|warn|error|fatal.
	Level string
	// Format is one of text|json.
	Format string
}

// ApplyConfig builds a Logger from the given config.
func ApplyConfig(cfg *Config) (Logger, error) {
	level := InfoLevel
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return NewLogger(
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	), nil
}
