package main

import (
	"errors"
	"os"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/config"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/preview"
)

// Exit codes for the mdpublish CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Headless browser or readiness check errors
	ExitPublish = 5 // Publish target rejected the upload
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, preview.ErrBrowserConnect) ||
		errors.Is(err, preview.ErrPageLoad) ||
		errors.Is(err, preview.ErrNotReady) {
		return ExitBrowser
	}

	if errors.Is(err, mdpublish.ErrPublishFailed) {
		return ExitPublish
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, fileutil.ErrNotMarkdown) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrTargetNotFound) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, mdpublish.ErrNoContent) ||
		errors.Is(err, mdpublish.ErrNoTarget) ||
		errors.Is(err, mdpublish.ErrInvalidStrategy) ||
		errors.Is(err, mdpublish.ErrInvalidMode) ||
		errors.Is(err, mdpublish.ErrInvalidPlugin) ||
		errors.Is(err, mdpublish.ErrInvalidAssetPath) ||
		errors.Is(err, mdpublish.ErrInvalidKeyPattern) {
		return ExitUsage
	}

	return ExitGeneral
}
