package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorCodeHeader carries the gateway error code of a failed response so the
// request log can report it.
const ErrorCodeHeader = "X-Rdw-Error-Code"

var L *zap.Logger
var S *zap.SugaredLogger

func init() {
	// Library code logs through L; stay silent until New is called.
	L = zap.NewNop()
	S = L.Sugar()
}

// New builds the process logger, named "rdw", and installs it as L and S.
// An unknown level falls back to info.
func New(level string, isDev bool) *zap.Logger {
	var config zap.Config
	if isDev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.DisableStacktrace = true

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}
	L = logger.Named("rdw")
	S = L.Sugar()
	return L
}

// Mask hides the middle of a secret: "123456789" becomes "123***789".
func Mask(s string) string {
	switch n := len(s); {
	case n <= 2:
		return strings.Repeat("*", n)
	case n <= 6:
		return s[:1] + strings.Repeat("*", n-2) + s[n-1:]
	default:
		return s[:3] + strings.Repeat("*", n-6) + s[n-3:]
	}
}

// Token is a zap field holding a masked API token.
func Token(key, token string) zap.Field {
	return zap.String(key, Mask(token))
}

// Middleware logs one line per request. Server errors log at error level and
// client errors at warn, with the gateway error code when the handler set one.
func Middleware(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t1 := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("size", ww.BytesWritten()),
					zap.Duration("duration", time.Since(t1)),
					zap.String("ip", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if code := ww.Header().Get(ErrorCodeHeader); code != "" {
					fields = append(fields, zap.String("error_code", code))
				}

				switch {
				case status >= 500:
					l.Error("request failed", fields...)
				case status >= 400:
					l.Warn("request rejected", fields...)
				default:
					l.Info("request completed", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
