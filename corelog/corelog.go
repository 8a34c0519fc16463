// Copyright 2020, Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package corelog implements the structured logging every collector's
// diagnostics flow through: a zap-backed logger writing structured JSON,
// optionally rotated through lumberjack.
package corelog

import (
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ncollectd/ncollectd-core/plugin"
)

const (
	messageKey  = "message"
	severityKey = "severity"
	timeKey     = "timestamp"
)

// Logger is the structured logger every core package's WarnFunc/LogFunc
// hooks are expected to be backed by in a wired-up daemon.
type Logger struct {
	logger *zap.SugaredLogger
}

func severityEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var severity string
	switch level {
	case zapcore.ErrorLevel:
		severity = "ERROR"
	case zapcore.WarnLevel:
		severity = "WARNING"
	case zapcore.InfoLevel:
		severity = "INFO"
	case zapcore.DebugLevel:
		severity = "DEBUG"
	default:
		severity = "DEFAULT"
	}
	enc.AppendString(severity)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(strconv.FormatInt(t.UnixNano(), 10))
}

// New builds a Logger that writes structured JSON to file, rotated through
// lumberjack once it exceeds maxSizeMB (0 disables rotation: plain append).
func New(file string, maxSizeMB, maxBackups int) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = messageKey
	cfg.LevelKey = severityKey
	cfg.TimeKey = timeKey
	cfg.EncodeTime = timeEncoder
	cfg.EncodeLevel = severityEncoder

	var ws zapcore.WriteSyncer
	if maxSizeMB > 0 {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		})
	} else {
		sink, _, err := zap.Open(file)
		if err != nil {
			return Discard()
		}
		ws = sink
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), ws, zap.DebugLevel)
	return &Logger{logger: zap.New(core, zap.AddCallerSkip(1)).Sugar()}
}

// Discard returns a Logger whose output is dropped, for tests and library
// callers that do not want log side effects.
func Discard() *Logger {
	observedCore, _ := observer.New(zap.DebugLevel)
	return &Logger{logger: zap.New(observedCore).Sugar()}
}

// DiscardObserved is Discard, but also returns the observed log entries for
// assertions in tests.
func DiscardObserved() (*Logger, *observer.ObservedLogs) {
	observedCore, logs := observer.New(zap.DebugLevel)
	return &Logger{logger: zap.New(observedCore).Sugar()}, logs
}

func (l *Logger) Debugf(format string, v ...any) { l.logger.Debugf(format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logger.Infof(format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logger.Warnf(format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logger.Errorf(format, v...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.logger.Sync() }

// LogFunc adapts Logger to plugin.LogFunc, the callback shape
// RegisterLog expects: every log line the registry's scheduler or dispatch
// path emits (failed reads, panicking callbacks, shutdown errors) is routed
// here at its reported severity.
func (l *Logger) LogFunc(severity, msg string, _ *plugin.UserData) {
	switch severity {
	case "error":
		l.logger.Error(msg)
	case "warning":
		l.logger.Warn(msg)
	case "debug":
		l.logger.Debug(msg)
	default:
		l.logger.Info(msg)
	}
}

// WarnFunc adapts Logger to the (line string, err error) shape used by
// package lineproto's Accumulator.Warn and package logtail's callers.
func (l *Logger) WarnFunc(line string, err error) {
	l.logger.Warnf("%s: %v", line, err)
}
