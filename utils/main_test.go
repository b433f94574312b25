package utils

import (
	"os"
	"testing"

	"github.com/cppla/postboard/config"
)

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{JWTSecret: "test-secret", TokenTTLHours: 1})
	os.Exit(m.Run())
}
