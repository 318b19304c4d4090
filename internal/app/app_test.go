package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
)

func testRuntime(buf *bytes.Buffer) *Runtime {
	return &Runtime{
		Service: "cron-worker",
		Config:  &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:  logger.New(logger.Options{ServiceName: "cron-worker", Format: "json", Output: buf}),
	}
}

func TestCloseRunsInReverseAndJoinsErrors(t *testing.T) {
	rt := testRuntime(&bytes.Buffer{})
	var order []string
	rt.Defer("database", func() error { order = append(order, "database"); return errors.New("db gone") })
	rt.Defer("redis", func() error { order = append(order, "redis"); return nil })
	rt.Defer("pubsub", func() error { order = append(order, "pubsub"); return errors.New("pubsub gone") })

	err := rt.Close()
	require.Equal(t, []string{"pubsub", "redis", "database"}, order)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "close pubsub: pubsub gone")
	require.ErrorContains(t, err, "close database: db gone")

	require.NoError(t, rt.Close(), "closers run once")
	require.Len(t, order, 3)
}

func TestExecuteExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"clean", nil, 0},
		{"canceled", context.Canceled, 0},
		{"wrapped cancel", errors.Join(errors.New("run"), context.Canceled), 0},
		{"failure", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			rt := testRuntime(&buf)
			closed := false
			rt.Defer("redis", func() error { closed = true; return nil })

			code := rt.execute(context.Background(), func(context.Context, *Runtime) error { return tc.err })
			require.Equal(t, tc.want, code)
			require.True(t, closed)
			if tc.want == 1 {
				require.Contains(t, buf.String(), "cron-worker stopped unexpectedly")
			} else {
				require.Contains(t, buf.String(), "cron-worker shutting down gracefully")
			}
		})
	}
}

func TestExecuteTagsContext(t *testing.T) {
	var buf bytes.Buffer
	rt := testRuntime(&buf)
	rt.execute(context.Background(), func(ctx context.Context, rt *Runtime) error {
		rt.Logger.Info(ctx, "tick")
		return nil
	})

	var tick string
	for line := range strings.Lines(buf.String()) {
		if strings.Contains(line, `"tick"`) {
			tick = line
		}
	}
	require.Contains(t, tick, `"serviceKind":"cron-worker"`)
	require.Contains(t, tick, `"env":"test"`)
}
