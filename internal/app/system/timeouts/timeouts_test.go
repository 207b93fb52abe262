package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if got := Short(); got != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", got)
	}
	if got := Medium(); got != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", got, DefaultMedium)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv(EnvPrefix+"PING", "250ms")
	t.Setenv(EnvPrefix+"LONG", "2m")
	t.Setenv(EnvPrefix+"SHORT", "nonsense")
	t.Setenv(EnvPrefix+"MEDIUM", "-1s")

	if n := ConfigureFromEnv(); n != 2 {
		t.Errorf("ConfigureFromEnv() = %d, want 2", n)
	}
	want := Config{Ping: 250 * time.Millisecond, Short: DefaultShort, Medium: DefaultMedium, Long: 2 * time.Minute}
	if got := Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.New(core), "slow op")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("got %d warnings, want 1", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "slow op" {
		t.Errorf("operation = %v, want %q", op, "slow op")
	}
}
