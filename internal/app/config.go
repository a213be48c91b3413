package app

import (
	"github.com/yungbote/lookbook-backend/internal/platform/envutil"
)

type Config struct {
	Port    string
	LogMode string
}

func LoadConfig() Config {
	return Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),
	}
}
