package system

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCLILogger returns the sugared logger used by the arclio commands. Unless verbose
// output was requested the logger discards everything, so stdout and stderr stay
// reserved for command output.
func NewCLILogger(w io.Writer, verbose bool) *zap.SugaredLogger {
	if !verbose || w == nil {
		return zap.NewNop().Sugar()
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core).Sugar()
}

// SecretFields returns key/value pairs describing a credential without exposing it:
// whether it is set and how long it is. The key is used as prefix, e.g. "accessToken".
func SecretFields(key, value string) []interface{} {
	return []interface{}{key + "Present", value != "", key + "Len", len(value)}
}
