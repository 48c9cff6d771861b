package logging

import (
	"fmt"
	"os"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var currentLevel = Info

func SetLevel(l Level) {
	currentLevel = l
}

func IsVerbose() bool {
	return currentLevel <= Debug
}

func Debugf(format string, args ...any) {
	if currentLevel <= Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

func Infof(format string, args ...any) {
	if currentLevel <= Info {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func Warnf(format string, args ...any) {
	if currentLevel <= Warn {
		fmt.Fprintf(os.Stderr, "[WARN] "+format+"\n", args...)
	}
}
