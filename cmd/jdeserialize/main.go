package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/bochkov/jdeserialize"
)

// Options holds the parsed command line.
type Options struct {
	ConfigPath  string
	NoContent   bool
	NoClasses   bool
	NoInstances bool
	ShowArrays  bool
	FixNames    bool
	NoConnect   bool
	Filter      string
	BlockData   string
	Debug       bool
	LogLevel    string
	Files       []string
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("jdeserialize", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.BoolVar(&opts.NoContent, "nocontent", false, "Don't output the stream content listing")
	fs.BoolVar(&opts.NoClasses, "noclasses", false, "Don't output the class declaration listing")
	fs.BoolVar(&opts.NoInstances, "noinstances", false, "Don't output the instance dump")
	fs.BoolVar(&opts.ShowArrays, "showarrays", false, "Include array classes in the class listing")
	fs.BoolVar(&opts.FixNames, "fixnames", false, "Rewrite illegal identifiers in class declarations")
	fs.BoolVar(&opts.NoConnect, "noconnect", false, "Skip the member-class reconnection pass")
	fs.StringVar(&opts.Filter, "filter", "", "Exclude classes matching this regex from the class listing")
	fs.StringVar(&opts.BlockData, "blockdata", "", "Write block data payloads to this file (plus a .manifest)")
	fs.BoolVar(&opts.Debug, "debug", false, "Dump the decoded graph structure")
	fs.StringVar(&opts.LogLevel, "loglevel", "", "Override the configured log level")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: jdeserialize [options] file ...\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	opts.Files = fs.Args()
	return opts
}

func main() {
	opts := ParseFlags(os.Args[1:])
	if len(opts.Files) == 0 {
		fmt.Fprintln(os.Stderr, "jdeserialize: no input files")
		os.Exit(2)
	}
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jdeserialize: %v\n", err)
		os.Exit(2)
	}
	applyFlagOverrides(&cfg, &opts)

	logger, err := SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jdeserialize: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	var filter *regexp.Regexp
	if cfg.Dump.Filter != "" {
		if filter, err = regexp.Compile(cfg.Dump.Filter); err != nil {
			fmt.Fprintf(os.Stderr, "jdeserialize: bad -filter regex: %v\n", err)
			os.Exit(2)
		}
	}

	exitCode := 0
	for _, name := range opts.Files {
		if err := process(name, cfg, opts, filter, logger); err != nil {
			logger.Error("decode failed", zap.String("file", name), zap.Error(err))
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func applyFlagOverrides(cfg *Config, opts *Options) {
	if opts.NoContent {
		cfg.Dump.NoContent = true
	}
	if opts.NoClasses {
		cfg.Dump.NoClasses = true
	}
	if opts.NoInstances {
		cfg.Dump.NoInstances = true
	}
	if opts.ShowArrays {
		cfg.Dump.ShowArrays = true
	}
	if opts.FixNames {
		cfg.Dump.FixNames = true
	}
	if opts.NoConnect {
		cfg.Dump.NoConnect = true
	}
	if opts.Filter != "" {
		cfg.Dump.Filter = opts.Filter
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
}

func process(name string, cfg Config, opts Options, filter *regexp.Regexp, logger *zap.Logger) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, err := jdeserialize.Decode(f, jdeserialize.Options{
		ConnectMemberClasses: !cfg.Dump.NoConnect,
		Logger:               logger,
	})
	if err != nil {
		return err
	}

	if len(opts.Files) > 1 {
		fmt.Printf("//// file %s\n\n", name)
	}
	if opts.Debug {
		cs := spew.ConfigState{Indent: "  ", MaxDepth: 8}
		cs.Fdump(os.Stdout, stream.TopLevel())
	}
	if !cfg.Dump.NoContent {
		jdeserialize.DumpContent(os.Stdout, stream)
	}
	if !cfg.Dump.NoClasses {
		if err := jdeserialize.DumpClasses(os.Stdout, stream, cfg.Dump.ShowArrays, filter, cfg.Dump.FixNames); err != nil {
			return err
		}
	}
	if !cfg.Dump.NoInstances {
		jdeserialize.DumpInstances(os.Stdout, stream)
	}
	if opts.BlockData != "" {
		target := opts.BlockData
		if len(opts.Files) > 1 {
			target = filepath.Base(name) + "." + target
		}
		if err := jdeserialize.ExtractBlockData(stream, target); err != nil {
			return err
		}
	}
	return nil
}
