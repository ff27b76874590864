package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("STOCKWIZARD_TEST_MODE", "1")
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("OPENBOXES_BASE_URL") == "" {
			_ = os.Setenv("OPENBOXES_BASE_URL", "http://127.0.0.1:0/openboxes")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs the package tests in test mode.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
