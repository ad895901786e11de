package approval

import (
	"os"
	"testing"

	"backend/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
