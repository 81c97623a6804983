package console

// Level is a logging level
type Level int

const (
	// DebugLevel is a verbose debugging message, that is not displayed by default to the user
	DebugLevel Level = iota
	// InfoLevel tells the user what's going on
	InfoLevel
	// WarnLevel tells the user that something might break
	WarnLevel
	// ErrorLevel tells the user that something is broken
	ErrorLevel
	// FatalLevel is an error, followed by exit
	FatalLevel
)
