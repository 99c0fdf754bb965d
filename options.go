package marmot

import (
	"io"

	"github.com/marmot-lang/marmot/compiler"
	"github.com/marmot-lang/marmot/vm"
	"github.com/rs/zerolog"
)

// Option configures a Marmot compilation or execution.
type Option func(*options)

type options struct {
	filename       string
	source         string
	logger         *zerolog.Logger
	maxUnitCost    int
	splitThreshold int
	globals        []string
	flags          *compiler.Flags
	stdout         io.Writer
	stderr         io.Writer
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerConfig() *compiler.Config {
	cfg := &compiler.Config{
		Filename:       o.filename,
		Source:         o.source,
		Logger:         o.logger,
		MaxUnitCost:    o.maxUnitCost,
		SplitThreshold: o.splitThreshold,
		Flags:          o.flags,
	}
	if len(o.globals) > 0 {
		globals := compiler.NewGlobals()
		for _, name := range o.globals {
			globals.Slot("", name)
		}
		cfg.Globals = globals
	}
	return cfg
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.stdout != nil {
		opts = append(opts, vm.WithStdout(o.stdout))
	}
	if o.stderr != nil {
		opts = append(opts, vm.WithStderr(o.stderr))
	}
	return opts
}

// WithFilename sets the filename recorded on compile errors and on the
// compiled unit.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithSource records the original source text on the compiled unit, so
// error messages can quote the offending line.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithLogger routes compile and execution tracing to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithMaxUnitCost sets the per-unit emission cost ceiling used by the
// block splitter.
func WithMaxUnitCost(cost int) Option {
	return func(o *options) {
		o.maxUnitCost = cost
	}
}

// WithSplitThreshold sets the statement count at which blocks are
// measured for splitting. A negative value disables splitting.
func WithSplitThreshold(threshold int) Option {
	return func(o *options) {
		o.splitThreshold = threshold
	}
}

// WithGlobals pre-seeds the global symbol space with the given
// qualified names, so slots stay stable across compilations. This
// option is additive.
func WithGlobals(names ...string) Option {
	return func(o *options) {
		o.globals = append(o.globals, names...)
	}
}

// WithFlags sets the initial pragma state of the program's base scope.
func WithFlags(flags *compiler.Flags) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// WithStdout redirects say output.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithStderr redirects warn output.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}
