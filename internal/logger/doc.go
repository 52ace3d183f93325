// Package logger wraps zap with a process-wide sugared logger that writes to
// stderr (stdout is reserved for command output such as dependency lists) and
// with helpers that carry a scoped logger through context.Context.
//
// Services never create loggers themselves: they call WithName/WithKV on the
// incoming context and log through Info/InfoKV/WarnKV and friends.
package logger
