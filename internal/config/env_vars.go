package config

import (
	"strings"
	"time"
)

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetLogoutTimeout() time.Duration
}

type EnvVars struct {
	AppName  string `yaml:"name" env:"APP_NAME" env-default:"sessionctl" env-description:"Application name shown in the banner"`
	Env      string `yaml:"env" env:"ENV" env-default:"DEV" env-description:"DEV enables console logging"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" env-description:"zerolog level"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

type API struct {
	BaseURL        string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8080/api" env-description:"Auth service base URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"API_REQUEST_TIMEOUT" env-default:"10s" env-description:"Per-request timeout"`
	LogoutTimeout  time.Duration `yaml:"logout_timeout" env:"API_LOGOUT_TIMEOUT" env-default:"5s" env-description:"Timeout of the background logout notification"`
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}

func (a API) GetLogoutTimeout() time.Duration {
	return a.LogoutTimeout
}
