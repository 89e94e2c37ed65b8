package logger

import (
	"io"
	"log/slog"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug. The conseil commands wire this to
// the global --debug flag; it is what surfaces the decoder's dropped-frame
// diagnostics.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty selects the colorized charmbracelet handler. The chat and
// board commands use it on stderr so log lines never mix into the streamed
// reply on stdout.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, for log files and anything that is
// parsed rather than read.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter directs output to a single writer instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters directs output to several writers at once, combined with
// io.MultiWriter. All writers share one handler; use Multi when each
// destination needs its own format or level.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the emitting file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
