package source

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// newRetryClient creates an HTTP client that retries 429 and 5xx responses
// with exponential backoff.
func newRetryClient(retryMax int, waitMin, waitMax time.Duration, log *zap.SugaredLogger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.HTTPClient.Timeout = 30 * time.Second
	if retryMax > 0 {
		c.RetryMax = retryMax
	}
	if waitMin > 0 {
		c.RetryWaitMin = waitMin
	}
	if waitMax > 0 {
		c.RetryWaitMax = waitMax
	}
	c.Logger = leveledLogger{log.Named("http")}
	return c
}

// leveledLogger routes retryablehttp's logging into zap at debug level, since
// its request lines include the API key in the URL.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Debugw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Debugw(msg, kv...) }

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }
