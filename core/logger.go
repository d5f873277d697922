package core

// Logger is any service that can log leveled messages along with arbitrary
// context arguments (errors, maps, the acting principal...).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
