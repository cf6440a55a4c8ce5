package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFilename = "vabboost.log"

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
var Writer io.Writer = os.Stdout

// Init configures the global logger. level accepts zerolog names ("debug", "info")
// or logrus-style numbers (0=panic ... 6=trace).
func Init(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	Writer = out

	lvl := parseLevel(level)
	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if lvl <= zerolog.DebugLevel {
		Logger = Logger.With().Caller().Logger()
	}
}

// AddFileLogger duplicates output into a rotating file under dir.
func AddFileLogger(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFilename),
		MaxSize:    50,
		MaxAge:     14,
		MaxBackups: 5,
	}

	multi := zerolog.MultiLevelWriter(Writer, fileLogger)
	Writer = multi
	Logger = zerolog.New(multi).Level(Logger.GetLevel()).With().Timestamp().Logger()
	return nil
}

func parseLevel(level string) zerolog.Level {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" {
		return zerolog.InfoLevel
	}
	if n, err := strconv.Atoi(level); err == nil {
		// logrus numbering: Panic=0, Fatal=1, Error=2, Warn=3, Info=4, Debug=5, Trace=6
		switch n {
		case 6:
			return zerolog.TraceLevel
		case 5:
			return zerolog.DebugLevel
		case 3:
			return zerolog.WarnLevel
		case 2:
			return zerolog.ErrorLevel
		case 1:
			return zerolog.FatalLevel
		case 0:
			return zerolog.PanicLevel
		default:
			return zerolog.InfoLevel
		}
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	return zerolog.InfoLevel
}
