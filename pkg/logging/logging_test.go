package logging_test

import (
	"log/slog"
	"testing"

	"github.com/Syras206/slimcryptdb/pkg/logging"
)

func TestNew_WithoutSeqAddrReturnsConsoleOnlyLogger(t *testing.T) {
	logger, cleanup := logging.New(logging.Options{Level: slog.LevelInfo})
	defer cleanup()

	if logger == nil {
		t.Fatalf("expected a non-nil logger")
	}
	logger.Info("hello", "key", "value")
}

func TestNew_CleanupIsSafeToCall(t *testing.T) {
	_, cleanup := logging.New(logging.Options{Level: slog.LevelDebug})
	cleanup()
	cleanup()
}
