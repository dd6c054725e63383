// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"
)

type discardHandler struct{}

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler { return discardHandler{} }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }

type leveler struct{ minLevel *slog.LevelVar }

func (l *leveler) Level() slog.Level { return l.minLevel.Level() }

func maxVerbosity() *slog.LevelVar {
	var level slog.LevelVar
	level.Set(levelMaxVerbosity)
	return &level
}

// JSONHandler returns a handler writing every record as a json line.
func JSONHandler(w io.Writer) slog.Handler {
	return JSONHandlerWithLevel(w, maxVerbosity())
}

// JSONHandlerWithLevel is JSONHandler that drops records below level.
func JSONHandlerWithLevel(w io.Writer, level *slog.LevelVar) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr { return replaceAttr(attr, false) },
		Level:       &leveler{level},
	})
}

// LogfmtHandler returns a handler writing key=value lines.
func LogfmtHandler(w io.Writer) slog.Handler {
	return LogfmtHandlerWithLevel(w, maxVerbosity())
}

// LogfmtHandlerWithLevel is LogfmtHandler that drops records below level.
func LogfmtHandlerWithLevel(w io.Writer, level *slog.LevelVar) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr { return replaceAttr(attr, true) },
		Level:       &leveler{level},
	})
}

func replaceAttr(attr slog.Attr, logfmt bool) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() != slog.KindTime {
			return attr
		}
		if logfmt {
			return slog.String("t", attr.Value.Time().Format(timeFormat))
		}
		return slog.Attr{Key: "t", Value: attr.Value}
	case slog.LevelKey:
		if l, ok := attr.Value.Any().(slog.Level); ok {
			return slog.String("lvl", LevelString(l))
		}
	}

	switch v := attr.Value.Any().(type) {
	case time.Time:
		if logfmt {
			attr.Value = slog.StringValue(v.Format(timeFormat))
		}
	case time.Duration:
		// json would print nanoseconds
		attr.Value = slog.StringValue(v.String())
	case []byte:
		attr.Value = slog.StringValue(fmt.Sprintf("0x%x", v))
	case []string:
		// contract output lines
		if logfmt {
			attr.Value = slog.StringValue(strings.Join(v, "|"))
		}
	case fmt.Stringer:
		if v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil()) {
			attr.Value = slog.StringValue("<nil>")
		} else {
			attr.Value = slog.StringValue(v.String())
		}
	}
	return attr
}
