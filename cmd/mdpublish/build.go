package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/hints"
	"github.com/study-groups/mdpublish/internal/pipeline"
)

// MaxWorkers caps --workers.
const MaxWorkers = 32

// ErrInvalidWorkerCount reports a --workers value out of range.
var ErrInvalidWorkerCount = errors.New("invalid worker count")

// Builder builds publish documents. *mdpublish.Publisher implements it.
type Builder interface {
	Build(ctx context.Context, in mdpublish.Input) (*mdpublish.Result, error)
}

var _ Builder = (*mdpublish.Publisher)(nil)

// FileToBuild represents a single file to process.
type FileToBuild struct {
	InputPath  string
	OutputPath string
}

// BuildResult holds the outcome of a single build.
type BuildResult struct {
	InputPath  string
	OutputPath string
	Title      string
	Err        error
	Duration   time.Duration
}

// runBuild builds publish documents for a file or a directory tree
// without uploading them.
func runBuild(ctx context.Context, args []string, env *Environment) error {
	flags, pos, err := parseBuildFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}
	input, err := singleInput(pos)
	if err != nil {
		return err
	}
	strategy, err := pipeline.ParseCSSStrategy(flags.strategy)
	if err != nil {
		return err
	}

	s, err := newSession(flags.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.serveMetrics(ctx)

	target, err := s.target(flags.target, flags.target == "")
	if err != nil {
		return err
	}

	files, err := discoverFiles(input, flags.output)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no markdown files found in %s", ErrNoInput, input)
	}

	pub, err := s.publisher()
	if err != nil {
		return err
	}

	inputFor := func(path string) (mdpublish.Input, error) {
		in, err := s.readInput(path)
		if err != nil {
			return in, err
		}
		in.Target = target
		if flags.strategy != "" {
			in.Strategy = strategy
		}
		return in, nil
	}

	results := buildBatch(ctx, pub, files, inputFor, resolveWorkers(flags.workers))
	if len(results) == 1 && results[0].Err != nil {
		return results[0].Err
	}
	failed := printResults(env, results, flags.common.quiet, flags.common.verbose)
	if failed > 0 {
		return fmt.Errorf("%d build(s) failed", failed)
	}
	return nil
}

// discoverFiles finds the markdown files to build.
// A single file goes to output when it names an .html file, into output
// when it names a directory, and next to the source otherwise. A directory
// tree is mirrored under output.
func discoverFiles(inputPath, output string) ([]FileToBuild, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := fileutil.ValidateMarkdown(inputPath); err != nil {
			return nil, err
		}
		out := fileutil.HTMLPath(inputPath, output)
		if strings.EqualFold(filepath.Ext(output), ".html") {
			out = output
		}
		return []FileToBuild{{InputPath: inputPath, OutputPath: out}}, nil
	}

	var files []FileToBuild
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !fileutil.IsMarkdown(path) {
			return nil
		}
		files = append(files, FileToBuild{InputPath: path, OutputPath: mirrorPath(path, inputPath, output)})
		return nil
	})
	return files, err
}

// mirrorPath places the .html for path under outDir at the same relative
// location it has under baseDir. An empty outDir keeps it next to path.
func mirrorPath(path, baseDir, outDir string) string {
	if outDir == "" {
		return fileutil.HTMLPath(path, "")
	}
	rel, err := filepath.Rel(baseDir, filepath.Dir(path))
	if err != nil {
		rel = ""
	}
	return fileutil.HTMLPath(path, filepath.Join(outDir, rel))
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, MaxWorkers)
	}
	return nil
}

// resolveWorkers determines the worker count.
// Priority: explicit flag > GOMAXPROCS-based calculation.
func resolveWorkers(flagWorkers int) int {
	if flagWorkers > 0 {
		return flagWorkers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// buildBatch builds files concurrently. A Publisher is safe for concurrent
// use, so workers share it. Results keep the order of files.
func buildBatch(ctx context.Context, b Builder, files []FileToBuild, input func(string) (mdpublish.Input, error), workers int) []BuildResult {
	if len(files) == 0 {
		return nil
	}
	workers = min(workers, len(files))

	results := make([]BuildResult, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = BuildResult{InputPath: files[idx].InputPath, Err: err}
					continue
				}
				results[idx] = buildFile(ctx, b, files[idx], input)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// buildFile processes a single file and returns the result.
func buildFile(ctx context.Context, b Builder, f FileToBuild, input func(string) (mdpublish.Input, error)) BuildResult {
	start := time.Now()
	result := BuildResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	done := func(err error) BuildResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	in, err := input(f.InputPath)
	if err != nil {
		return done(err)
	}

	res, err := b.Build(ctx, in)
	if err != nil {
		return done(err)
	}
	result.Title = res.Title

	if err := fileutil.WriteFile(f.OutputPath, []byte(res.HTML)); err != nil {
		return done(fmt.Errorf("%w: %w%s", ErrWriteOutput, err, hints.ForOutputDirectory()))
	}
	return done(nil)
}

// printResults outputs build results and returns the failure count.
func printResults(env *Environment, results []BuildResult, quiet, verbose bool) int {
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed
}
