package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/hints"
	"github.com/study-groups/mdpublish/internal/pipeline"
)

// runPublish builds a standalone document and uploads it to a target.
// The URL reported by the target is printed as-is on stdout.
func runPublish(ctx context.Context, args []string, env *Environment) error {
	flags, pos, err := parsePublishFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	path, err := singleInput(pos)
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

	in, err := s.readInput(path)
	if err != nil {
		return err
	}
	if in.Target, err = s.target(flags.target, false); err != nil {
		return err
	}
	in.Path = flags.path
	if flags.strategy != "" {
		in.Strategy = strategy
	}

	pub, err := s.publisher()
	if err != nil {
		return err
	}
	res, err := pub.Publish(ctx, in)
	if err != nil {
		var perr *mdpublish.PublishError
		if errors.As(err, &perr) {
			return fmt.Errorf("%w%s", err, hints.ForCredentials(perr.Message))
		}
		return err
	}

	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Published %s to %s as %s (%s)\n", path, in.Target.Name, res.Key, res.Strategy)
	}
	fmt.Fprintln(env.Stdout, res.URL)
	return nil
}
