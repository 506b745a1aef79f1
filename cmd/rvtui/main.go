// Command rvtui is the interactive viewer over a running guest image:
// a tview-based register/trace display driven entirely through
// pkg/debugger's command API, replacing the "-d"/Scanln step pause the
// teacher's cmd/interp and cmd/vm use for interactive debugging with a
// persistent on-screen view.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/coding-potatoo/rv32emu/internal/config"
	"github.com/coding-potatoo/rv32emu/internal/tui"
	"github.com/coding-potatoo/rv32emu/pkg/cpu"
	"github.com/coding-potatoo/rv32emu/pkg/debugger"
	"github.com/coding-potatoo/rv32emu/pkg/elfsym"
	"github.com/coding-potatoo/rv32emu/pkg/trace"
)

func main() {
	log.SetFlags(0)

	cfg := config.Default()
	fs := flag.NewFlagSet("rvtui", flag.ExitOnError)
	config.RegisterFlags(fs, &cfg)
	configPath := fs.String("config", "", "TOML configuration file (flags override it)")
	image := fs.String("f", "", "raw guest image file to load")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = fileCfg
		// Re-parse on a fresh FlagSet (fs already defines these flags) so
		// flags given on the command line override the file's values.
		override := flag.NewFlagSet("rvtui", flag.ExitOnError)
		config.RegisterFlags(override, &cfg)
		override.String("config", "", "")
		override.String("f", "", "")
		if err := override.Parse(os.Args[1:]); err != nil {
			log.Fatal(err)
		}
	}
	if *image == "" {
		log.Fatal("usage: rvtui [-config <file>] -f <raw-image>")
	}

	raw, err := os.ReadFile(*image)
	if err != nil {
		log.Fatal(err)
	}
	mem := cpu.NewMemory(cfg.Base, int(cfg.MemorySize))
	if err := mem.LoadImage(raw); err != nil {
		log.Fatal(err)
	}

	var funcs trace.FuncTable
	if cfg.ELFPath != "" {
		funcs, err = elfsym.Load(cfg.ELFPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	logFile, err := os.CreateTemp("", "rvtui-log-*.txt")
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()

	c := cpu.New(mem)
	dbg := debugger.New(c, cfg.RingCapacity, funcs, logFile)
	dbg.MTrace.Enabled = cfg.MTrace
	dbg.FTrace.Enabled = cfg.FTrace

	// spec.md section 6 "Trace file naming": once a log path is given,
	// itrace/mtrace/ftrace each get their own suffixed file instead of
	// sharing the screen-owning TUI's scratch logFile.
	if cfg.LogPath != "" {
		itracePath, mtracePath, ftracePath := config.TraceFileNames(cfg.LogPath)

		itraceFile, err := os.Create(itracePath)
		if err != nil {
			log.Fatal(err)
		}
		defer itraceFile.Close()
		dbg.ITrace = trace.NewInstrTrace(itraceFile)

		mtraceFile, err := os.Create(mtracePath)
		if err != nil {
			log.Fatal(err)
		}
		defer mtraceFile.Close()
		dbg.MTrace = trace.NewMemTrace(mtraceFile)
		dbg.MTrace.Enabled = cfg.MTrace

		ftraceFile, err := os.Create(ftracePath)
		if err != nil {
			log.Fatal(err)
		}
		defer ftraceFile.Close()
		dbg.FTrace = trace.NewFuncTracer(funcs, ftraceFile)
		dbg.FTrace.Enabled = cfg.FTrace
	}

	app := tui.New(dbg)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
