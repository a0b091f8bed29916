package types

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrStartAfterEnd      = errors.New("start date is after end date")
	ErrNoDevelopers       = errors.New("no developers configured; set 'developers' in the config file")
	ErrInvalidEffortHours = errors.New("effort hours must be greater than zero")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
	ErrInvalidS3URI       = errors.New("invalid S3 URI, expected s3://bucket/prefix")
	ErrBackendResponse    = errors.New("unexpected backend response")
	ErrNothingExported    = errors.New("no report file was exported")
)
