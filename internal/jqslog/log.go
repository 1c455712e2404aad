// Package jqslog prints progress and error messages to standard output
// and, optionally, to a log file.
//
// Log output can be enabled/disabled for two independent streams:
//
//	console  => standard output stream
//	log file => log file, truncated on every run, optionally daily-stamped
//
// Log messages are prefixed by default with a date-time, e.g.
//
//	2026-07-31 09:14:02.0148 scheduler starting: root=/home/user/jqs cores_total=8 mem_mb_total=16384
//
// The prefix can be suppressed with Options.NoMsgTime.
package jqslog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Options controls where and how messages are logged.
type Options struct {
	Console   bool   // log to standard output
	FilePath  string // log file path, empty disables file logging
	Daily     bool   // roll the log file daily with a date-stamped name
	NoMsgTime bool   // do not prefix messages with date-time
}

var (
	theLock       sync.Mutex
	opts          = Options{Console: true}
	isFileEnabled bool
	isFileCreated bool
	logPath       string
	lastYear      int
	lastMonth     time.Month
	lastDay       int
)

// Init (re)configures the logger. Safe to call more than once.
func Init(o Options) {
	theLock.Lock()
	defer theLock.Unlock()

	opts = o
	isFileEnabled = opts.FilePath != ""
	isFileCreated = false
}

// Log formats and prints a message the same way fmt.Sprint does.
func Log(msg ...interface{}) {
	theLock.Lock()
	defer theLock.Unlock()
	logLocked(fmt.Sprint(msg...))
}

// Logf formats and prints a message the same way fmt.Sprintf does.
func Logf(format string, args ...interface{}) {
	theLock.Lock()
	defer theLock.Unlock()
	logLocked(fmt.Sprintf(format, args...))
}

// Warnf prints a message prefixed with "WARNING: ".
func Warnf(format string, args ...interface{}) {
	Logf("WARNING: "+format, args...)
}

// Errorf prints a message prefixed with "ERROR: ".
func Errorf(format string, args ...interface{}) {
	Logf("ERROR: "+format, args...)
}

func logLocked(m string) {
	now := time.Now()
	if !opts.NoMsgTime {
		m = makeDateTime(now) + " " + m
	}
	if opts.Console {
		fmt.Println(m)
	}

	if isFileEnabled &&
		(!isFileCreated || opts.Daily && (now.Year() != lastYear || now.Month() != lastMonth || now.Day() != lastDay)) {
		isFileCreated = createLogFile(now)
		isFileEnabled = isFileCreated
	}
	if isFileEnabled {
		isFileEnabled = writeToLogFile(m)
	}
}

func makeDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.0000")
}

func createLogFile(nowTime time.Time) bool {
	logPath = opts.FilePath

	if opts.Daily {
		dir, fName := filepath.Split(logPath)
		ext := filepath.Ext(fName)
		if ext != "" {
			fName = fName[:len(fName)-len(ext)]
		}
		lastYear = nowTime.Year()
		lastMonth = nowTime.Month()
		lastDay = nowTime.Day()
		logPath = filepath.Join(dir, fmt.Sprintf("%s_%04d%02d%02d%s", fName, lastYear, lastMonth, lastDay, ext))
	}

	f, err := os.Create(logPath)
	if err != nil {
		return false
	}
	defer f.Close()
	return true
}

func writeToLogFile(msg string) bool {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return false
	}
	defer f.Close()

	_, err = f.WriteString(msg)
	if err == nil {
		if runtime.GOOS == "windows" {
			_, err = f.WriteString("\r\n")
		} else {
			_, err = f.WriteString("\n")
		}
	}
	return err == nil
}
