package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "STOCKWIZARD_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether the binaries should return before connecting to
// postgres, redis or the backend. The flag is read once.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testModeFlag.Store(os.Getenv(testModeEnv) == "1")
	})
	return testModeFlag.Load()
}
