package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/engine"
	"github.com/andresousadotpt/hkd/internal/keys"
	"github.com/andresousadotpt/hkd/internal/taphold"
	"github.com/andresousadotpt/hkd/internal/x11"
)

var version = "0.1.0"

// countFlag counts repeated boolean flags such as -v -v.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }
func (c *countFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: hkd [-c config] [-v [-v]] [run|init|check [-dump]|keys [-x]|kill|migrate|version]\n")
}

func run(path string, verbosity int) error {
	if err := refuseRoot(); err != nil {
		return err
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w\nRun 'hkd init' to create a default config", err)
		}
		return fmt.Errorf("load config: %w", err)
	}

	closeLog, err := setupLogging(cfg, verbosity)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logrus.NewEntry(logrus.StandardLogger())

	tables, err := cfg.Compile()
	if err != nil {
		return fmt.Errorf("invalid config %s:\n%w", path, err)
	}
	for _, ov := range tables.Bindings.Overrides() {
		log.WithFields(logrus.Fields{
			"trigger":  ov.New.Trigger,
			"line":     ov.New.Line,
			"replaces": ov.Old.Line,
		}).Warn("binding overrides an earlier one")
	}

	pid, err := acquirePidFile(cfg.PidFile)
	if err != nil {
		return err
	}
	defer pid.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		injector engine.Injector
		probe    func() (keys.Locks, error)
	)
	switch cfg.Backend {
	case backendX11:
		xc, err := x11.Open("", log)
		if err != nil {
			return err
		}
		defer xc.Close()
		injector, probe = xc, xc.Locks
		if cfg.AutorepeatDelay > 0 || cfg.AutorepeatInterval > 0 {
			if err := xc.SetAutorepeat(cfg.AutorepeatDelay, cfg.AutorepeatInterval); err != nil {
				log.WithError(err).Warn("autorepeat not applied")
			}
		}
		// Losing the display ends the daemon.
		go func() {
			if err := xc.Watch(ctx); err != nil {
				cancel(err)
			}
		}()
	case backendUinput:
		vi, err := NewVirtualInput()
		if err != nil {
			return err
		}
		defer vi.Close()
		injector = vi
		if cfg.AutorepeatDelay > 0 || cfg.AutorepeatInterval > 0 {
			log.Warn("autorepeat settings need the x11 backend, ignoring")
		}
	}

	src, err := OpenDevices(cfg.Grab, virtualPrefix, log)
	if err != nil {
		return err
	}
	defer src.Close()
	if probe == nil {
		probe = src.Locks
	}
	locks, err := probe()
	if err != nil {
		log.WithError(err).Warn("lock state unknown, assuming none")
	}

	var th *taphold.Machine
	if len(tables.TapHold) > 0 {
		th = taphold.New(tables.TapHold, cfg.Timeout)
	}
	d := engine.NewDispatcher(engine.Config{
		Bindings:    tables.Bindings,
		Remaps:      tables.Remaps,
		TapHold:     th,
		Policy:      cfg.LockPolicy,
		Locks:       locks,
		Injector:    injector,
		Executor:    engine.NewShellExecutor(cfg.Shell, commandExpander(cfg.Vars), log),
		PassThrough: cfg.Grab,
		Log:         log,
	})

	log.WithFields(logrus.Fields{
		"version":  version,
		"backend":  cfg.Backend,
		"bindings": tables.Bindings.Len(),
		"remaps":   tables.Remaps.Len(),
		"tap_hold": len(tables.TapHold),
		"grab":     cfg.Grab,
		"locks":    locks,
	}).Info("hkd started")

	err = engine.Run(ctx, src, d, cfg.QueueSize, log)
	if cause := context.Cause(ctx); err == nil && cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	log.Info("shutting down")
	return err
}

// check compiles the config and reports every problem.
func check(path string, args []string) error {
	fl := flag.NewFlagSet("check", flag.ExitOnError)
	dump := fl.Bool("dump", false, "print the compiled tables")
	fl.Parse(args)

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	tables, err := cfg.Compile()
	if err != nil {
		return fmt.Errorf("%s:\n%w", path, err)
	}
	for _, ov := range tables.Bindings.Overrides() {
		fmt.Printf("warning: line %d overrides line %d (%s)\n", ov.New.Line, ov.Old.Line, ov.New.Trigger)
	}
	fmt.Printf("%s: ok, %d bindings, %d remaps, %d tap_hold keys\n",
		path, tables.Bindings.Len(), tables.Remaps.Len(), len(tables.TapHold))

	if *dump {
		sc := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
		for _, b := range tables.Bindings.Bindings() {
			fmt.Printf("%-32s line %-4d %s\n", b.Trigger, b.Line, b.Action)
		}
		sc.Fdump(os.Stdout, tables.TapHold)
		sc.Fdump(os.Stdout, cfg.Vars)
	}
	return nil
}

// listKeys prints every key name the config accepts, or with -x the X
// server's keymap.
func listKeys(args []string) error {
	fl := flag.NewFlagSet("keys", flag.ExitOnError)
	server := fl.Bool("x", false, "print the X server keymap")
	fl.Parse(args)

	if *server {
		xc, err := x11.Open("", logrus.NewEntry(logrus.StandardLogger()))
		if err != nil {
			return err
		}
		defer xc.Close()
		km, err := xc.Keymap()
		if err != nil {
			return err
		}
		return km.Write(os.Stdout)
	}

	for _, k := range keys.Table() {
		fmt.Printf("0x%03x  %-24s %v\n", k.ID.Code, k.Name, k.Aliases)
	}
	fmt.Println("mouse1..mouse9 name mouse buttons; [0x..] or [..] names any key code")
	return nil
}

func kill(path string) error {
	pidPath := defaultPidFile()
	if cfg, err := LoadConfig(path); err == nil {
		pidPath = cfg.PidFile
	}
	pid, err := killRunning(pidPath)
	if err != nil {
		return err
	}
	fmt.Printf("hkd: sent SIGINT to %d\n", pid)
	return nil
}

func main() {
	var verbosity countFlag
	fl := flag.NewFlagSet("hkd", flag.ExitOnError)
	cfgPath := fl.String("c", defaultConfigPath(), "config file")
	fl.Var(&verbosity, "v", "verbose output, twice for trace")
	fl.Usage = usage
	fl.Parse(os.Args[1:])

	cmd, args := "run", fl.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = run(*cfgPath, int(verbosity))
	case "init":
		fmt.Printf("hkd: initializing config %s\n", *cfgPath)
		if err = initConfig(*cfgPath); err == nil {
			fmt.Println("hkd: config initialized")
		}
	case "check":
		err = check(*cfgPath, args)
	case "keys":
		err = listKeys(args)
	case "kill":
		err = kill(*cfgPath)
	case "migrate":
		err = migrateConfig(*cfgPath)
	case "version":
		fmt.Printf("hkd %s\n", version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hkd: %v\n", err)
		os.Exit(1)
	}
}
