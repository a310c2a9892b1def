package logger

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Log is an instance of the global logrus.Logger
var Log *logrus.Logger
var logLevel logrus.Level
var initializeLogger sync.Once

// Marshaler lets a logged field control its own JSON representation
type Marshaler interface {
	MarshalLog() interface{}
}

// JSONFormatter renders each entry as a single JSON object
type JSONFormatter struct {
	Hostname string
	AppName  string
}

func buildFormatter(format string, appName string) logrus.Formatter {
	switch strings.ToUpper(format) {
	case "TEXT":
		return &logrus.TextFormatter{}
	default:
		return NewJSONFormatter(appName)
	}
}

// NewJSONFormatter creates a new log formatter
func NewJSONFormatter(appName string) *JSONFormatter {
	f := &JSONFormatter{AppName: appName}

	var err error
	if f.Hostname, err = os.Hostname(); err != nil {
		f.Hostname = "unknown"
	}

	return f
}

// Format is the log formatter for the entry
func (f *JSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	data := map[string]interface{}{
		"@timestamp":  entry.Time.UTC().Format("2006-01-02T15:04:05.999Z"),
		"@version":    1,
		"message":     entry.Message,
		"levelname":   entry.Level.String(),
		"source_host": f.Hostname,
		"app":         f.AppName,
	}

	if entry.HasCaller() {
		data["caller"] = entry.Caller.Function
	}

	for k, v := range entry.Data {
		switch v := v.(type) {
		case error:
			data[k] = v.Error()
		case Marshaler:
			data[k] = v.MarshalLog()
		default:
			data[k] = v
		}
	}

	j, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	b.Write(j)
	b.WriteByte('\n')

	return b.Bytes(), nil
}

// InitLogger initializes the logger instance
func InitLogger() {

	initializeLogger.Do(func() {
		logconfig := viper.New()
		logconfig.SetDefault("LOG_LEVEL", "DEBUG")
		logconfig.SetDefault("LOG_FORMAT", "text")
		logconfig.SetDefault("LOG_APP_NAME", "identity-event-forwarder")
		logconfig.SetEnvPrefix("EVENT_FORWARDER")
		logconfig.AutomaticEnv()
		format := logconfig.GetString("LOG_FORMAT")

		switch strings.ToUpper(logconfig.GetString("LOG_LEVEL")) {
		case "TRACE":
			logLevel = logrus.TraceLevel
		case "DEBUG":
			logLevel = logrus.DebugLevel
		case "WARN":
			logLevel = logrus.WarnLevel
		case "ERROR":
			logLevel = logrus.ErrorLevel
		default:
			logLevel = logrus.InfoLevel
		}
		if flag.Lookup("test.v") != nil {
			logLevel = logrus.FatalLevel
		}

		Log = &logrus.Logger{
			Out:          os.Stdout,
			Level:        logLevel,
			Formatter:    buildFormatter(format, logconfig.GetString("LOG_APP_NAME")),
			Hooks:        make(logrus.LevelHooks),
			ReportCaller: true,
			ExitFunc:     os.Exit,
		}
	})
}

func LogError(msg string, err error) {
	Log.WithFields(logrus.Fields{"error": err}).Error(msg)
}

func LogFatalError(msg string, err error) {
	Log.WithFields(logrus.Fields{"error": err}).Fatal(msg)
}

// FlushLogger gives buffered hooks a chance to drain before the process exits
func FlushLogger() {
	if Log == nil {
		return
	}

	if f, ok := Log.Out.(*os.File); ok {
		f.Sync()
	}

	time.Sleep(10 * time.Millisecond)
}
