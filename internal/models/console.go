package models

import (
	"fmt"
	"strings"
	"time"
)

type ConsoleLevel string

const (
	ConsoleLevelDebug   ConsoleLevel = "debug"
	ConsoleLevelInfo    ConsoleLevel = "info"
	ConsoleLevelWarning ConsoleLevel = "warning"
	ConsoleLevelError   ConsoleLevel = "error"
)

// ParseConsoleLevel maps the level names reported by the browser engines onto
// ConsoleLevel. Chromium reports "verbose", "warning" and "error" for log
// entries and the console API type for console calls; firefox reports the
// console API type; webdriver style logs report "SEVERE".
func ParseConsoleLevel(s string) (ConsoleLevel, error) {
	switch strings.ToLower(s) {
	case "verbose", "debug", "trace":
		return ConsoleLevelDebug, nil
	case "info", "log", "dir", "dirxml", "table", "count", "timeend", "startgroup", "startgroupcollapsed", "endgroup":
		return ConsoleLevelInfo, nil
	case "warning", "warn":
		return ConsoleLevelWarning, nil
	case "error", "severe", "assert", "exception":
		return ConsoleLevelError, nil
	default:
		return "", fmt.Errorf("invalid console level: %s", s)
	}
}

type ConsoleEntry struct {
	Level     ConsoleLevel
	Text      string
	Source    string
	URL       string
	Timestamp time.Time
}

func (e ConsoleEntry) String() string {
	if e.URL != "" {
		return fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(string(e.Level)), e.Text, e.URL)
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(e.Level)), e.Text)
}
