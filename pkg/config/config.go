// Package config loads the tool's on-disk configuration: which
// device to use, the unlock key algorithm table, and kernel file
// locations.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration file format.
type Config struct {
	Device  DeviceConfig            `toml:"device"`
	Kernels KernelConfig            `toml:"kernels"`
	Algos   map[string]uint16       `toml:"key_algorithms"`
}

// DeviceConfig describes which transport to use and how to reach it.
type DeviceConfig struct {
	Kind string `toml:"kind"` // "serial" or "usb"
	Port string `toml:"port"`

	USBVendorID  uint16 `toml:"usb_vendor_id"`
	USBProductID uint16 `toml:"usb_product_id"`

	Supports4x  bool `toml:"supports_4x"`
	MaxSendSize int  `toml:"max_send_size"`
}

// KernelConfig names the kernel binaries relative to the executable.
type KernelConfig struct {
	WriteKernel    string `toml:"write_kernel"`
	ReadKernel     string `toml:"read_kernel"`
	BaseAddress    uint32 `toml:"base_address"`
	MinimumVersion string `toml:"minimum_version"`
}

func defaultConfig() Config {
	return Config{
		Device: DeviceConfig{
			Kind:        "serial",
			Supports4x:  true,
			MaxSendSize: 76,
		},
		Kernels: KernelConfig{
			WriteKernel: "kernel-write.bin",
			ReadKernel:  "kernel-read.bin",
			BaseAddress: 0x00FF0000,
		},
		Algos: map[string]uint16{},
	}
}

// Load reads and decodes a TOML config file at path, starting from
// defaultConfig so a partial file still produces a usable Config. A
// missing file is not an error: defaultConfig is returned as-is. A
// file that exists but fails to parse is.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// KeyAlgorithmFor looks up the unlock key algorithm id for an OS id
// string (the config keys algorithms by OS id, formatted as a decimal
// or hex string under [key_algorithms]). Returns 0 (the algorithm's
// own "unrecognized" fallback) when no mapping exists.
func (c Config) KeyAlgorithmFor(osID string) uint16 {
	return c.Algos[osID]
}
