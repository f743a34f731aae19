package logging

import "log/slog"

// Secret wraps a sensitive value so it can never be formatted into log
// output. Every standard formatting path renders it as [REDACTED].
type Secret string

// String implements fmt.Stringer, always returning a redacted value.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so slog attributes are redacted too.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
