package media

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// leveledZerolog adapts zerolog to retryablehttp's logger. Errors become
// warnings because the request is usually retried.
type leveledZerolog struct {
	log zerolog.Logger
}

func (l leveledZerolog) Error(msg string, kv ...interface{}) { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledZerolog) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledZerolog) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledZerolog) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }

// NewHTTPClient returns a client that retries connection errors and 5xx responses.
func NewHTTPClient(timeout time.Duration, log zerolog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZerolog{log: log.With().Str("component", "http").Logger()})

	client := retryClient.StandardClient()
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
