package utils

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ErrDatabaseURLMissing is returned when DATABASE_URL is set neither in the
// environment nor in a .env file.
var ErrDatabaseURLMissing = errors.New("DATABASE_URL not set (in .env or environment)")

// LoadEnv loads a .env file from the working directory if there is one.
// Variables already present in the environment win.
func LoadEnv(logger *zap.Logger) {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Debug("no .env file found, continuing", zap.Error(err))
	}
}

func GetDatabaseURL() (string, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", ErrDatabaseURLMissing
	}
	return url, nil
}
