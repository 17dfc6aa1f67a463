package pcmsession

import (
	"time"

	"github.com/gmflash/pcmflash/pkg/logging"
)

// Config holds everything a Session needs beyond the Device it's
// handed directly.
type Config struct {
	Logger logging.Logger

	// KeyAlgorithmID selects the unlock key transform. Set with
	// WithKeyAlgorithm; it defaults to 0, which Key maps to its
	// fallback transform. cmd/pcmflash does not set it.
	KeyAlgorithmID uint16

	// ReadBlockSize is the number of bytes requested per bulk-read
	// iteration. The last iteration may request fewer.
	ReadBlockSize int

	// KernelFile loads the write-kernel and read-kernel binaries.
	KernelFile KernelFileSource

	// MinimumKernelVersion is the lowest embedded kernel version this
	// session will run without a warning. Empty disables the check.
	MinimumKernelVersion string

	UnlockRetries      uint
	WriteBlockRetries  uint
	UploadRetries      uint
	ChunkRetries       uint
	ReadRetries        uint
	FlashChunkRetries  uint

	CancelSignal func() bool
}

// KernelFileSource loads a kernel binary by name. Grounded on the
// "file source" collaborator: paths are resolved relative to the
// executable and short reads are reported distinctly from not-found.
type KernelFileSource interface {
	ReadAll(name string) ([]byte, error)
}

func defaultConfig() Config {
	return Config{
		Logger:            logging.NopLogger{},
		ReadBlockSize:     200,
		UnlockRetries:     5,
		WriteBlockRetries: 5,
		UploadRetries:     5,
		ChunkRetries:      5,
		ReadRetries:       5,
		FlashChunkRetries: 5,
		CancelSignal:      func() bool { return false },
	}
}

// Option configures a Session at construction time.
type Option func(*Config)

// WithLogger sets the session's observational logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithKeyAlgorithm sets the unlock key algorithm id.
func WithKeyAlgorithm(id uint16) Option {
	return func(c *Config) { c.KeyAlgorithmID = id }
}

// WithReadBlockSize overrides the default 200-byte bulk-read chunk.
func WithReadBlockSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ReadBlockSize = n
		}
	}
}

// WithKernelFileSource sets the collaborator used to load kernel
// binaries for pcm_execute.
func WithKernelFileSource(src KernelFileSource) Option {
	return func(c *Config) { c.KernelFile = src }
}

// WithCancelSignal sets the cooperative cancellation predicate checked
// at suspension boundaries.
func WithCancelSignal(f func() bool) Option {
	return func(c *Config) {
		if f != nil {
			c.CancelSignal = f
		}
	}
}

// WithMinimumKernelVersion sets the lowest embedded kernel version
// loadKernel (used by EnsureReadKernel and WriteFull) accepts without
// logging a compatibility warning.
func WithMinimumKernelVersion(v string) Option {
	return func(c *Config) { c.MinimumKernelVersion = v }
}

// readDelay is the small fixed pause the bulk-read loop waits between
// attempts when the device is momentarily busy. Kept as a var, not a
// const, so tests can shrink it.
var readDelay = 10 * time.Millisecond
