package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// previewFlags holds flags for the preview command.
type previewFlags struct {
	common commonFlags
	output string
	target string
	check  bool
}

// buildFlags holds flags for the build command.
type buildFlags struct {
	common   commonFlags
	output   string
	target   string
	strategy string
	workers  int
}

// publishFlags holds flags for the publish command.
type publishFlags struct {
	common   commonFlags
	target   string
	path     string
	strategy string
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	listen string
	target string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show pipeline logs and timing")
}

// newFlagSet creates a FlagSet whose usage goes to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parse runs fs.Parse and marks failures as usage errors.
// flag.ErrHelp is returned unchanged.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return fs.Args(), nil
}

// parsePreviewFlags parses preview command flags and returns positional args.
func parsePreviewFlags(args []string, w io.Writer) (*previewFlags, []string, error) {
	f := &previewFlags{}
	fs := newFlagSet("preview", w, printPreviewUsage)
	fs.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	fs.StringVarP(&f.target, "target", "t", "", "publish target supplying CSS paths and theme URL")
	fs.BoolVar(&f.check, "check", false, "load the preview in headless Chrome and wait for readiness")
	addCommonFlags(fs, &f.common)

	pos, err := parse(fs, args)
	return f, pos, err
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string, w io.Writer) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newFlagSet("build", w, printBuildUsage)
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.target, "target", "t", "", "publish target supplying CSS paths and theme URL")
	fs.StringVarP(&f.strategy, "strategy", "s", "", "CSS strategy: embedded, linked, hybrid")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers for directories (0 = auto)")
	addCommonFlags(fs, &f.common)

	pos, err := parse(fs, args)
	return f, pos, err
}

// parsePublishFlags parses publish command flags and returns positional args.
func parsePublishFlags(args []string, w io.Writer) (*publishFlags, []string, error) {
	f := &publishFlags{}
	fs := newFlagSet("publish", w, printPublishUsage)
	fs.StringVarP(&f.target, "target", "t", "", "publish target name (default: defaultTarget)")
	fs.StringVarP(&f.path, "path", "p", "", "object key, may use {YYYY}-style placeholders (default: title slug)")
	fs.StringVarP(&f.strategy, "strategy", "s", "", "CSS strategy: embedded, linked, hybrid")
	addCommonFlags(fs, &f.common)

	pos, err := parse(fs, args)
	return f, pos, err
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, w io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", w, printServeUsage)
	fs.StringVarP(&f.listen, "listen", "l", "", "listen address (default: preview.listen)")
	fs.StringVarP(&f.target, "target", "t", "", "publish target supplying CSS paths and theme URL")
	addCommonFlags(fs, &f.common)

	pos, err := parse(fs, args)
	return f, pos, err
}
