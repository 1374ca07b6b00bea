package internal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Importance string

const (
	Info    Importance = " "
	Warning Importance = "?"
	Error   Importance = "!"
	Raw     Importance = "-"
)

// Logger implements LogHandler. Events are queued and written by a single
// goroutine to zap, then to the database and the message service if set.
type Logger struct {
	zap            *zap.Logger
	location       *time.Location
	debugMode      bool
	writer         chan *LogEvent
	done           chan struct{}
	writeMutex     sync.RWMutex
	closed         bool
	sinkMutex      sync.RWMutex
	database       Database
	messageService MessageService
}

type LogEvent struct {
	Importance Importance
	Message    *FeatureLogMessage
}

func NewLogger(base *zap.Logger, location *time.Location) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	logger := &Logger{
		zap:      base,
		location: location,
		writer:   make(chan *LogEvent, 100),
		done:     make(chan struct{}),
	}
	go logger.startWriter()
	return logger
}

// NewZapLogger writes human readable lines to stdout and, when rotation is set, JSON lines to a rotated file
func NewZapLogger(debug bool, rotation *lumberjack.Logger) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level),
	}
	if rotation != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotation), level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

// NewRotation returns nil when no file is configured
func NewRotation(file string, maxSize, maxAge int) *lumberjack.Logger {
	if file == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename: file,
		MaxSize:  maxSize, // megabytes
		MaxAge:   maxAge,  // days
	}
}

func (l *Logger) startWriter() {
	defer close(l.done)
	for event := range l.writer {
		message := event.Message
		l.logLine(event.Importance, message)

		l.sinkMutex.RLock()
		database, messageService := l.database, l.messageService
		l.sinkMutex.RUnlock()

		if database != nil {
			if err := database.WriteLogMessage(message); err != nil {
				l.zap.Error("write log to database failed", zap.Error(err))
			}
		}
		if messageService != nil && event.Importance != Raw {
			if err := messageService.Send(message); err != nil {
				l.zap.Warn("push log message failed", zap.Error(err))
			}
		}
	}
}

// Close flushes queued events and stops the writer; later events are dropped
func (l *Logger) Close() {
	l.writeMutex.Lock()
	if l.closed {
		l.writeMutex.Unlock()
		return
	}
	l.closed = true
	close(l.writer)
	l.writeMutex.Unlock()
	<-l.done
	_ = l.zap.Sync()
}

func (l *Logger) SetDebugMode(debugMode bool) {
	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()
	l.debugMode = debugMode
}

func (l *Logger) SetDatabase(database Database) {
	l.sinkMutex.Lock()
	defer l.sinkMutex.Unlock()
	l.database = database
}

func (l *Logger) SetMessageService(messageService MessageService) {
	l.sinkMutex.Lock()
	defer l.sinkMutex.Unlock()
	l.messageService = messageService
}

func logTime(t time.Time) string {
	timeString := fmt.Sprintf("%d-%02d-%02d %02d:%02d:%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	return timeString
}

func (l *Logger) FeatureEvent(feature, id, text string) {
	l.logEvent(Info, l.newFeatureLogMessage(feature, id, text))
}

func (l *Logger) logEvent(importance Importance, message *FeatureLogMessage) {
	if message.Subject == "" {
		message.Subject = "*"
	}
	message.Importance = string(importance)
	event := &LogEvent{
		Importance: importance,
		Message:    message,
	}
	l.writeMutex.RLock()
	defer l.writeMutex.RUnlock()
	if l.closed {
		return
	}
	l.writer <- event
}

func (l *Logger) Debug(text string) {
	l.logEvent(Info, l.newFeatureLogMessage("info", "", text))
}

func (l *Logger) Warn(text string) {
	l.logEvent(Warning, l.newFeatureLogMessage("warning", "", text))
}

func (l *Logger) Error(text string, err error) {
	l.logEvent(Error, l.newFeatureLogMessage("error", "", fmt.Sprintf("%s: %s", text, err)))
}

// RawDataEvent logs request and response bodies, only in debug mode
func (l *Logger) RawDataEvent(direction, data string) {
	l.writeMutex.RLock()
	debugMode := l.debugMode
	l.writeMutex.RUnlock()
	if debugMode {
		l.logEvent(Raw, l.newFeatureLogMessage("raw", "", fmt.Sprintf("%s: %s", direction, data)))
	}
}

func (l *Logger) logLine(importance Importance, message *FeatureLogMessage) {
	fields := []zap.Field{
		zap.String("feature", message.Feature),
		zap.String("id", message.Subject),
	}
	switch importance {
	case Warning:
		l.zap.Warn(message.Text, fields...)
	case Error:
		l.zap.Error(message.Text, fields...)
	case Raw:
		l.zap.Debug(message.Text, fields...)
	default:
		l.zap.Info(message.Text, fields...)
	}
}

func (l *Logger) newFeatureLogMessage(feature, id, text string) *FeatureLogMessage {
	now := time.Now()
	return &FeatureLogMessage{
		Time:      logTime(now.In(l.location)),
		TimeStamp: now.UTC(),
		Text:      text,
		Feature:   feature,
		Subject:   id,
	}
}
