package main

import (
	"context"
	"fmt"
	"os"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/preview"
)

// runServe serves a live preview until interrupted.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, pos, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	path, err := singleInput(pos)
	if err != nil {
		return err
	}
	if err := fileutil.ValidateMarkdown(path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}

	s, err := newSession(flags.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	target, err := s.target(flags.target, flags.target == "")
	if err != nil {
		return err
	}

	var extra []mdpublish.Option
	if s.cfg.Preview.ImageBaseURL == "" {
		extra = append(extra, mdpublish.WithPreviewImageBase(preview.FilesPrefix))
	}
	pub, err := s.publisher(extra...)
	if err != nil {
		return err
	}

	listen := flags.listen
	if listen == "" {
		listen = s.cfg.Preview.Listen
	}
	srv, err := preview.NewServer(pub, preview.Config{
		Source:  path,
		Theme:   s.theme(),
		Target:  target,
		Listen:  listen,
		Metrics: s.metricsHandler(),
		Logger:  s.log,
	})
	if err != nil {
		return err
	}

	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Serving %s on http://%s (Ctrl+C to stop)\n", path, listen)
	}
	return srv.ListenAndServe(ctx)
}
