package core

// Logger is the application-wide logging and error-tracking contract.
// Implementations may forward entries to an external collector; extra
// args (errors, context maps, users) are passed through as-is.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
