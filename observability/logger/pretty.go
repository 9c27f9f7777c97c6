package logger

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // color printers are immutable after init
var levelColors = map[zapcore.Level]*color.Color{
	zapcore.DebugLevel:  color.New(color.FgCyan),
	zapcore.InfoLevel:   color.New(color.FgGreen),
	zapcore.WarnLevel:   color.New(color.FgYellow),
	zapcore.ErrorLevel:  color.New(color.FgRed, color.Bold),
	zapcore.DPanicLevel: color.New(color.FgRed, color.Bold),
	zapcore.PanicLevel:  color.New(color.FgRed, color.Bold),
	zapcore.FatalLevel:  color.New(color.FgMagenta, color.Bold),
}

// prettyEncoder prints a colored console line followed by the structured
// fields as indented JSON. The embedded JSON encoder accumulates fields added
// through With.
type prettyEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newPrettyEncoder(cfg zapcore.EncoderConfig) *prettyEncoder {
	return &prettyEncoder{
		Encoder: zapcore.NewJSONEncoder(cfg),
		pool:    buffer.NewPool(),
	}
}

// Clone keeps derived loggers on the pretty encoder.
func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	head := zapcore.Entry{
		Level:      entry.Level,
		Time:       entry.Time,
		LoggerName: entry.LoggerName,
		Message:    entry.Message,
	}

	lineBuf, err := zapcore.NewConsoleEncoder(consoleConfig()).EncodeEntry(head, nil)
	if err != nil {
		return nil, err
	}
	line := strings.TrimRight(lineBuf.String(), "\n")
	lineBuf.Free()

	if c, ok := levelColors[entry.Level]; ok {
		lvl := entry.Level.CapitalString()
		line = strings.Replace(line, lvl, c.Sprint(lvl), 1)
	}

	out := e.pool.Get()
	out.AppendString(line)

	jsonBuf, err := e.Encoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return nil, err
	}
	defer jsonBuf.Free()

	var fieldMap map[string]any
	if json.Unmarshal(jsonBuf.Bytes(), &fieldMap) == nil && len(fieldMap) > 0 {
		indented, marshalErr := json.MarshalIndent(fieldMap, "", "  ")
		if marshalErr == nil {
			out.AppendString("\n")
			out.AppendString(string(indented))
		}
	}

	out.AppendString("\n")
	return out, nil
}

func consoleConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:       messageKey,
		LevelKey:         levelKey,
		NameKey:          nameKey,
		TimeKey:          timeKey,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

// newPrettyLogger builds a zap logger writing pretty entries to stdout.
func newPrettyLogger(cfg *zap.Config) *zap.Logger {
	fieldsCfg := cfg.EncoderConfig
	fieldsCfg.MessageKey = zapcore.OmitKey
	fieldsCfg.LevelKey = zapcore.OmitKey
	fieldsCfg.TimeKey = zapcore.OmitKey
	fieldsCfg.NameKey = zapcore.OmitKey

	core := zapcore.NewCore(newPrettyEncoder(fieldsCfg), zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}
