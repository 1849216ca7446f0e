package grove

import (
	"log/slog"
	"runtime"

	"github.com/jward/grove/internal/logging"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/telemetry"
)

type settings struct {
	workers     int
	syntaxCache int
	parser      syntax.Parser
	extractor   symbols.Extractor
	faults      telemetry.FaultReporter
	logger      *slog.Logger
}

// Option configures a root.
type Option func(*settings)

// WithWorkers bounds the parse pool used to build a read-only root. Values
// below 1 are treated as 1. Defaults to runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = max(n, 1)
	}
}

// WithParser replaces the default tree-sitter Rust parser.
func WithParser(p syntax.Parser) Option {
	return func(s *settings) {
		s.parser = p
	}
}

// WithExtractor replaces the native symbol extractor, for example with a
// script-driven one.
func WithExtractor(ex symbols.Extractor) Option {
	return func(s *settings) {
		s.extractor = ex
	}
}

// WithFaultReporter sets the receiver of parser panics. The default logs to
// the root's logger.
func WithFaultReporter(r telemetry.FaultReporter) Option {
	return func(s *settings) {
		s.faults = r
	}
}

// WithSyntaxCache bounds how many syntax trees a writable root keeps
// memoized. Zero keeps every tree.
func WithSyntaxCache(n int) Option {
	return func(s *settings) {
		s.syntaxCache = max(n, 0)
	}
}

// WithLogger sets the logger. Roots are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func newSettings(opts []Option) settings {
	s := settings{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.parser == nil {
		s.parser = syntax.NewRustParser()
	}
	if s.extractor == nil {
		s.extractor = symbols.TreeExtractor{}
	}
	if s.faults == nil {
		s.faults = telemetry.NewObserver(s.logger)
	}
	return s
}
