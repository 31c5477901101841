package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoInput is returned when no input URL or list file is specified.
	// This error occurs when neither --list nor a positional argument
	// provides an input.
	ErrNoInput = errors.New("no input specified: provide a catalog URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would abort every run immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent extractions,
	// effectively stopping the run.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownRelation is returned when a configured link relation is not
	// one the walker understands (item, collection, child, self).
	ErrUnknownRelation = errors.New("unknown link relation: supported relations are item, collection, child, self")
)
