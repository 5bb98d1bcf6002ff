package baomoi

import (
	"strings"
	"time"
)

// Config 描述 BaoMoi 行情接口的访问方式。
type Config struct {
	RESTBaseURL string
	APIKey      string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://w-api.baomoi.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	return out
}
