package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a VirtualMachine.
type Option func(*VirtualMachine)

// WithStdout redirects say output. The default is os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stdout = w
	}
}

// WithStderr redirects warn output. The default is os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stderr = w
	}
}

// WithLogger sets the logger used for execution diagnostics. The
// default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithContextCheckInterval sets how many instructions run between
// checks of ctx.Done. A value of zero or less disables the checks.
// The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.checkInterval = interval
	}
}
