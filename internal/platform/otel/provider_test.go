package otel_test

import (
	"context"
	"os"
	"testing"

	"github.com/Gathouria/Adopt-Skin/internal/platform/otel"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "")
	unsetenv(t, "ADOPTSKIN_OTEL_ENABLED")
	unsetenv(t, "ADOPTSKIN_OTEL_SAMPLE_RATIO")

	settings, err := otel.LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if !settings.Enabled || settings.SampleRatio != 1 || settings.Active() {
		t.Fatalf("settings = %+v", settings)
	}
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "")
	unsetenv(t, "ADOPTSKIN_OTEL_ENABLED")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ADOPTSKIN_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_RejectsInvalidEnabledValue(t *testing.T) {
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ADOPTSKIN_OTEL_ENABLED", "sometimes")

	if _, err := otel.Setup(context.Background(), "test-service"); err == nil {
		t.Fatal("expected error for invalid enabled value")
	}
}

func TestSetupWith_RejectsSampleRatioOutOfRange(t *testing.T) {
	settings := otel.Settings{Enabled: true, Endpoint: "http://192.0.2.1:4318", SampleRatio: 2}
	if _, err := otel.SetupWith(context.Background(), "test-service", settings); err == nil {
		t.Fatal("expected sample ratio error")
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address, nothing is exported.
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	unsetenv(t, "ADOPTSKIN_OTEL_ENABLED")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("ADOPTSKIN_OTEL_ENDPOINT", "")
	unsetenv(t, "ADOPTSKIN_OTEL_ENABLED")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
