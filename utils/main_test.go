package utils

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	// Config is loaded lazily by cache/stock helpers; give it the secrets it
	// insists on before anything touches it.
	os.Setenv("JWT_SECRET", "test-jwt-secret")
	os.Setenv("CRON_SECRET", "test-cron-secret")
	os.Exit(m.Run())
}
