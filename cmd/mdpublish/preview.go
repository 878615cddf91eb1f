package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/hints"
	"github.com/study-groups/mdpublish/internal/preview"
)

// runPreview builds a preview document, writes it to -o or stdout and
// optionally checks that it reports readiness in a headless browser.
func runPreview(ctx context.Context, args []string, env *Environment) error {
	flags, pos, err := parsePreviewFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	path, err := singleInput(pos)
	if err != nil {
		return err
	}

	s, err := newSession(flags.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	in, err := s.readInput(path)
	if err != nil {
		return err
	}
	if in.Target, err = s.target(flags.target, flags.target == ""); err != nil {
		return err
	}

	pub, err := s.publisher()
	if err != nil {
		return err
	}
	res, err := pub.Preview(ctx, in)
	if err != nil {
		return err
	}

	if flags.output == "" {
		if _, err := fmt.Fprint(env.Stdout, res.HTML); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	} else {
		if err := fileutil.WriteFile(flags.output, []byte(res.HTML)); err != nil {
			return fmt.Errorf("%w: %w%s", ErrWriteOutput, err, hints.ForOutputDirectory())
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stderr, "Created %s\n", flags.output)
		}
	}

	if !flags.check {
		return nil
	}

	checker := env.NewChecker()
	defer func() { _ = checker.Close() }()

	result, err := checker.Check(ctx, res.HTML, res.EmbedID, pub.Readiness().Bound())
	switch {
	case errors.Is(err, preview.ErrNotReady):
		return fmt.Errorf("%w%s", err, hints.ForNotReady())
	case errors.Is(err, preview.ErrBrowserConnect):
		return fmt.Errorf("%w%s", err, hints.ForBrowserConnect())
	case err != nil:
		return err
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Preview ready in %v (embed %s)\n", result.Settle, result.EmbedID)
	}
	return nil
}
