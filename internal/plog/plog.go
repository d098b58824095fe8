// Package plog is a thin wrapper around the standard logger, used only in
// places that cannot return an error to a caller: the best-effort cleanup
// paths that close a file while Open or Compact is already failing. Every
// operation in perdix returns an error instead of logging.
package plog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

func Info(msg string, args ...any) {
	std.Printf("info: "+msg, args...)
}

func Warn(msg string, args ...any) {
	std.Printf("warn: "+msg, args...)
}

func Error(msg string, args ...any) {
	std.Printf("error: "+msg, args...)
}
