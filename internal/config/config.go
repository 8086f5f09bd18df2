package config

import (
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/pkg/configutil"
	"time"
)

type EndpointsConfig struct {
	ResultPage string `json:"result_page"`
	Challenge  string `json:"challenge"`
}

type SearchConfig struct {
	Industries  string `json:"industries"`
	WindowYears int    `json:"window_years"`
}

type CaptchaConfig struct {
	GmPaths        []string `json:"gm_paths"`
	TesseractPaths []string `json:"tesseract_paths"`
	Language       string   `json:"language"`
	Psm            int      `json:"psm"`
	// RetryDelaySeconds is the wait between failed session acquisitions.
	RetryDelaySeconds int `json:"retry_delay_seconds"`
}

type FetchConfig struct {
	// MaxAttempts is how many sessions one document download may go
	// through, a negative value means no limit.
	MaxAttempts int `json:"max_attempts"`
}

type HttpConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
}

type Config struct {
	Endpoints  EndpointsConfig  `json:"endpoints"`
	Search     SearchConfig     `json:"search"`
	FilingsDir string           `json:"filings_dir"`
	Database   string           `json:"database"`
	Captcha    CaptchaConfig    `json:"captcha"`
	Fetch      FetchConfig      `json:"fetch"`
	Http       HttpConfig       `json:"http"`
	Schedule   string           `json:"schedule"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Endpoints: EndpointsConfig{
			ResultPage: "http://www.sedar.com/FindCompanyDocuments.do",
			Challenge:  "http://www.sedar.com/GetFile.do?lang=EN&docClass=13&issuerNo=00020297&fileName=/foo",
		},
		Search: SearchConfig{
			Industries:  "046,047,005,006,058,025",
			WindowYears: 10,
		},
		FilingsDir: "filings",
		Database:   "sedar.db",
		Captcha: CaptchaConfig{
			GmPaths:           []string{"/usr/local/bin/gm", "/usr/bin/gm"},
			TesseractPaths:    []string{"/usr/local/bin/tesseract", "/usr/bin/tesseract"},
			Language:          "eng",
			Psm:               8,
			RetryDelaySeconds: 15,
		},
		Fetch: FetchConfig{
			MaxAttempts: 10,
		},
		Http: HttpConfig{
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Schedule: "0 3 * * *",
	}
}

// Load reads name (and its .local override), fields it leaves out keep their
// default.
func Load(name string) (Config, error) {
	return configutil.ReadConfigWithDefaults(name, Default())
}

func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Captcha.RetryDelaySeconds) * time.Second
}

func (c Config) HttpTimeout() time.Duration {
	return time.Duration(c.Http.TimeoutSeconds) * time.Second
}

// FetchMaxAttempts is the bound handed to the document fetcher, where 0 is
// unbounded.
func (c Config) FetchMaxAttempts() int {
	if c.Fetch.MaxAttempts < 0 {
		return 0
	}
	return c.Fetch.MaxAttempts
}
