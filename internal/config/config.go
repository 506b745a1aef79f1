// Package config loads the emulator's ambient configuration: guest
// memory layout, trace subsystem toggles, and the optional ring/log
// settings every cmd/ entry point shares. Grounded on the teacher's
// cmd/vm and cmd/interp, which layer "-d"/"-v"/"-f" flag.Bool/
// flag.String overrides on top of fixed defaults; here the defaults
// come from Default() and an optional TOML file (see SPEC_FULL.md §3)
// overrides them, decoded with
// github.com/BurntSushi/toml, the dependency bassosimone/risc32's
// pack-mate lookbusy1344/arm-emulator pulls in for the same kind of
// emulator-wide settings, and flags still override whatever the file
// contains.
package config

import (
	"flag"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the ambient configuration shared by every cmd/ entry point.
type Config struct {
	Base         uint32 `toml:"base_address"`
	MemorySize   uint32 `toml:"memory_size"`
	RingCapacity int    `toml:"ring_capacity"`
	MTrace       bool   `toml:"mtrace"`
	FTrace       bool   `toml:"ftrace"`
	ELFPath      string `toml:"elf_symbols"`
	LogPath      string `toml:"log_path"`
}

// Default returns the configuration used when no TOML file is given.
func Default() Config {
	return Config{
		Base:         0x80000000,
		MemorySize:   1 << 20,
		RingCapacity: 16,
		MTrace:       false,
		FTrace:       false,
	}
}

// Load decodes path into Default()'s values, leaving fields path does
// not mention at their default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterFlags binds flag overrides onto cfg's fields, exactly the
// way the teacher's main() functions layer "-d"/"-v"/"-f" on top of
// their own fixed defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var((*hexUint32)(&cfg.Base), "base", "guest memory base address (hex or decimal)")
	fs.IntVar(&cfg.RingCapacity, "ring", cfg.RingCapacity, "instruction trace ring buffer capacity")
	fs.BoolVar(&cfg.MTrace, "mtrace", cfg.MTrace, "enable memory access tracing")
	fs.BoolVar(&cfg.FTrace, "ftrace", cfg.FTrace, "enable function call/return tracing")
	fs.StringVar(&cfg.ELFPath, "elf", cfg.ELFPath, "ELF file to read function symbols from")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "file to write log output to (default stderr)")
}

// TraceFileNames derives the itrace/mtrace/ftrace log paths from a base
// log path, per spec.md section 6's "Trace file naming": the stream
// suffix is inserted before the file extension, or appended if logPath
// has none. An empty logPath yields three empty paths.
func TraceFileNames(logPath string) (itrace, mtrace, ftrace string) {
	if logPath == "" {
		return "", "", ""
	}
	ext := filepath.Ext(logPath)
	base := strings.TrimSuffix(logPath, ext)
	return base + "-itrace" + ext, base + "-mtrace" + ext, base + "-ftrace" + ext
}

// hexUint32 lets -base accept "0x80000000" as well as plain decimal.
type hexUint32 uint32

func (h *hexUint32) String() string {
	return strconv.FormatUint(uint64(*h), 10)
}

func (h *hexUint32) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return err
	}
	*h = hexUint32(v)
	return nil
}
