package apperr

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/user/watchwise/internal/logger"
)

var sentryEnabled bool

// InitSentry 配置了 DSN 时启用 Sentry 上报
func InitSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return err
	}
	sentryEnabled = true
	return nil
}

// Flush 退出前等待事件发送
func Flush() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// Report 记录非预期错误；业务类错误（校验、权限、重复等）不上报
func Report(message string, err error) {
	if err == nil {
		return
	}
	switch KindOf(err) {
	case KindAPI, KindInternal, KindPartialSignUp, KindConflict:
	default:
		return
	}

	logger.Get().WithError(err).Error(message)

	if sentryEnabled {
		sentry.CaptureException(err)
	}
}
