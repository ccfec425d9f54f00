package sl

import (
	"log/slog"
	"strconv"
)

// Err creates a slog.Attr with the given error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}

	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// RecordID creates a slog.Attr for an optional record identifier; absent ids log as "none".
func RecordID(identifier *int64) slog.Attr {
	if identifier == nil {
		return slog.String("id", "none")
	}

	return slog.String("id", strconv.FormatInt(*identifier, 10))
}
