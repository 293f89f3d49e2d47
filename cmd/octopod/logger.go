package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/octopod/octopod/framework"
)

// zerologLogger adapts a zerolog.Logger to framework.Logger. Framework output is debug output,
// so it only appears when the logger's level allows debug messages.
type zerologLogger struct {
	log zerolog.Logger
}

func newLogger(out io.Writer, debug bool) framework.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerologLogger{
		log: zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
			Level(level).With().Timestamp().Logger(),
	}
}

func (z zerologLogger) Println(args ...interface{}) {
	z.log.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (z zerologLogger) Printf(message string, args ...interface{}) {
	z.log.Debug().Msgf(message, args...)
}
