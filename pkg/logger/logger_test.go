package logger_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/cwrk-planet/presence-service/pkg/logger"

	"github.com/stretchr/testify/require"
)

func captureStdout(fn func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()

	return buf.String()
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	out := captureStdout(func() {
		logger.Init(logger.Config{
			Service: "demo",
			Version: "v0.0.1",
			Env:     logger.EnvDev,
			Backend: logger.BackendStd,
			Level:   slog.LevelDebug,
		})
		slog.Info("hello world")
	})

	require.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "dev/std должен быть текстовым: %s", out)
	require.Contains(t, out, "hello world")
	require.Contains(t, out, "service=demo")
	require.Contains(t, out, "env=dev")
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	out := captureStdout(func() {
		logger.Init(logger.Config{
			Service: "demo",
			Env:     logger.EnvProd,
			Backend: logger.BackendZap,
		})
		slog.Info("hello json")
	})

	require.Contains(t, out, `"hello json"`)
	require.Contains(t, out, `"service"`)
}

func TestInit_DefaultBackendByEnv(t *testing.T) {
	out := captureStdout(func() {
		logger.Init(logger.Config{Service: "demo", Env: logger.EnvDev})
		slog.Info("via default")
	})

	require.Contains(t, out, "via default")
	require.NotContains(t, out, `"msg"`)
}

func TestL_InitializesLazily(t *testing.T) {
	require.NotNil(t, logger.L())
}
