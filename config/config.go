// Package config holds the kernel's immutable configuration record.
// Like the teacher's iouring.Option, each knob is set through a
// functional option and the resulting Config is frozen by New; nothing
// in the kernel may mutate it after boot.
package config

// DebugLevel controls the verbosity of diagnostic output.
type DebugLevel int

const (
	DebugOff DebugLevel = iota
	DebugError
	DebugInfo
	DebugDebug
	DebugComplex
)

// LogLevel controls how much of the kernel log stream is populated.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogSimple
	LogComplex
)

// Config is the frozen, process-wide configuration record. It is
// constructed once at boot (from the INIT hypercall payload) and read
// by every component thereafter.
type Config struct {
	DebugLevel      DebugLevel
	LogLevel        LogLevel
	SlowPrint       bool // route prints via hypercall instead of the buffered log
	UringLog        bool
	KernelPagetable bool // maintain a separate page table for kernel vs user
	TcpBuffIO       bool // enable ring-buffered socket I/O via io_uring
	RawTimer        bool // per-timer SQE mode instead of the batched TimerStore
	PerfDebug       bool
	PrintException  bool
}

// Option configures a Config during New.
type Option func(*Config)

func WithDebugLevel(l DebugLevel) Option { return func(c *Config) { c.DebugLevel = l } }
func WithLogLevel(l LogLevel) Option     { return func(c *Config) { c.LogLevel = l } }
func WithSlowPrint() Option              { return func(c *Config) { c.SlowPrint = true } }
func WithUringLog() Option               { return func(c *Config) { c.UringLog = true } }
func WithKernelPagetable() Option        { return func(c *Config) { c.KernelPagetable = true } }
func WithTcpBuffIO() Option              { return func(c *Config) { c.TcpBuffIO = true } }
func WithRawTimer() Option               { return func(c *Config) { c.RawTimer = true } }
func WithPerfDebug() Option              { return func(c *Config) { c.PerfDebug = true } }
func WithPrintException() Option         { return func(c *Config) { c.PrintException = true } }

// New builds the immutable configuration record. The zero value (no
// options) matches the conservative defaults: no raw timers (batched
// TimerStore), no separate kernel page table, buffered TCP I/O off.
func New(opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
