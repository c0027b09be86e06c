package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/yashs662/holodeck/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const queueSize = 1000

type level string

const (
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
	levelFatal level = "FATAL"
	levelDebug level = "DEBUG"
)

type requestIDKey struct{}

var (
	consoleLoggers map[level]*log.Logger
	fileLoggers    map[level]*log.Logger
	fileOutput     io.WriteCloser

	debugMode bool

	// mu guards logQueue: senders hold it shared, Close holds it exclusively.
	mu       sync.RWMutex
	logQueue chan logEntry
	wg       sync.WaitGroup
	exit     = os.Exit
)

type logEntry struct {
	level   level
	message string
}

func init() {
	initializeLoggers("")
}

// Init starts the asynchronous log pipeline described by cfg.
func Init(cfg *config.Config) {
	Close()

	mu.Lock()
	debugMode = cfg.Log.Debug
	initializeLoggers(cfg.Log.File)
	logQueue = make(chan logEntry, queueSize)
	wg.Add(1)
	go processLogQueue(logQueue)
	mu.Unlock()

	if cfg.Log.Debug {
		configJSON, _ := json.MarshalIndent(cfg, "", "  ")
		Debugf("Loaded configuration: %s", configJSON)
	}
}

func initializeLoggers(logFile string) {
	logFlags := log.Ldate | log.Ltime
	if debugMode {
		logFlags |= log.Lmicroseconds
	}

	// File logger: plain text, no colors
	var out io.Writer = io.Discard
	fileOutput = nil
	if logFile != "" {
		fileOutput = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = fileOutput
	}
	fileLoggers = map[level]*log.Logger{
		levelInfo:  log.New(out, "INFO:  ", logFlags),
		levelWarn:  log.New(out, "WARN:  ", logFlags),
		levelError: log.New(out, "ERROR: ", logFlags),
		levelFatal: log.New(out, "FATAL: ", logFlags),
		levelDebug: log.New(out, "DEBUG: ", logFlags),
	}

	consoleLoggers = map[level]*log.Logger{
		levelInfo:  log.New(os.Stdout, color.GreenString("INFO:  "), logFlags),
		levelWarn:  log.New(os.Stdout, color.YellowString("WARN:  "), logFlags),
		levelError: log.New(os.Stderr, color.RedString("ERROR: "), logFlags),
		levelFatal: log.New(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("FATAL: "), logFlags),
		levelDebug: log.New(os.Stdout, color.BlueString("DEBUG: "), logFlags),
	}
}

func processLogQueue(queue <-chan logEntry) {
	defer wg.Done()
	for entry := range queue {
		write(entry)
	}
}

func write(entry logEntry) {
	if entry.level == levelDebug && !debugMode {
		return
	}
	consoleLoggers[entry.level].Println(entry.message)
	fileLoggers[entry.level].Println(entry.message)
}

func enqueue(lvl level, message string) {
	mu.RLock()
	defer mu.RUnlock()
	if logQueue == nil {
		write(logEntry{level: lvl, message: message})
		return
	}
	logQueue <- logEntry{level: lvl, message: message}
}

func Info(message string) {
	enqueue(levelInfo, message)
}

func Warn(message string) {
	enqueue(levelWarn, message)
}

func Error(message string) {
	enqueue(levelError, message)
}

// Fatal flushes pending entries and exits the process.
func Fatal(message string) {
	enqueue(levelFatal, message)
	Close()
	exit(1)
}

func Debug(message string) {
	if debugMode {
		enqueue(levelDebug, message)
	}
}

func Infof(format string, v ...interface{}) {
	enqueue(levelInfo, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	enqueue(levelWarn, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	enqueue(levelError, fmt.Sprintf(format, v...))
}

func Fatalf(format string, v ...interface{}) {
	Fatal(fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) {
	if debugMode {
		enqueue(levelDebug, fmt.Sprintf(format, v...))
	}
}

func StructuredInfo(fields map[string]interface{}) {
	jsonLog, _ := json.Marshal(fields)
	Info(string(jsonLog))
}

// WithRequestID returns a context whose log lines carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func InfoWithContext(ctx context.Context, message string) {
	if requestID := RequestID(ctx); requestID != "" {
		Infof("[RequestID: %v] %s", requestID, message)
	} else {
		Info(message)
	}
}

func WarnWithContext(ctx context.Context, message string) {
	if requestID := RequestID(ctx); requestID != "" {
		Warnf("[RequestID: %v] %s", requestID, message)
	} else {
		Warn(message)
	}
}

func SetDebugMode(debug bool) {
	debugMode = debug
}

// Close drains the queue and releases the log file. Later calls log
// synchronously to the console.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logQueue != nil {
		close(logQueue)
		wg.Wait()
		logQueue = nil
	}
	if fileOutput != nil {
		fileOutput.Close()
	}
	initializeLoggers("")
}
