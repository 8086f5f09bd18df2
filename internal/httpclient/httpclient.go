package httpclient

import (
	"net/http/cookiejar"
	"sedar-crawler/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	Timeout time.Duration
	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	UserAgent         string
}

// Factory creates a fresh client every call, each one with its own cookie jar.
type Factory func() (*resty.Client, error)

// NewFactory returns a Factory producing clients configured by opts.
func NewFactory(opts Options, tel telemetry.API) Factory {
	return func() (*resty.Client, error) {
		return New(opts, tel)
	}
}

// New creates a cookie-bearing resty client that looks like a regular browser.
func New(opts Options, tel telemetry.API) (*resty.Client, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		// max burst >= 1 just means that no requests will be dropped
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel)

	return client, nil
}
