package main

import (
	"io"
	"os"
	"time"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/preview"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Environ func() []string
	EnvFile string // dotenv file read before the process environment

	// Uploaders replaces the driver-based uploader selection when set.
	Uploaders mdpublish.UploaderFactory

	// NewChecker creates the readiness checker for preview --check.
	NewChecker func() preview.Checker
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Environ:    os.Environ,
		EnvFile:    ".env",
		NewChecker: func() preview.Checker { return preview.NewBrowserChecker() },
	}
}
