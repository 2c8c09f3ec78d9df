package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"

	"genie-adapter/internal/usecase"
)

func TestTableData(t *testing.T) {
	rows := [][]any{
		{"EU", json.Number("900")},
		{"US", nil},
		{"APAC"},
	}

	data, truncated := tableData([]string{"region", "total"}, rows, 0)
	require.False(t, truncated)
	require.Equal(t, pterm.TableData{
		{"region", "total"},
		{"EU", "900"},
		{"US", "NULL"},
		{"APAC", "NULL"},
	}, data)
}

func TestTableData_Limit(t *testing.T) {
	rows := [][]any{{"a"}, {"b"}, {"c"}}

	data, truncated := tableData([]string{"x"}, rows, 2)
	require.True(t, truncated)
	require.Equal(t, pterm.TableData{{"x"}, {"a"}, {"b"}}, data)

	_, truncated = tableData([]string{"x"}, rows, 3)
	require.False(t, truncated)
}

func TestDescribeError(t *testing.T) {
	err := describeError(&usecase.Error{Code: usecase.ErrorTimeout, Reason: "genie_timeout", Detail: "Genie query timed out"})
	require.EqualError(t, err, "TIMEOUT: Genie query timed out")

	err = describeError(&usecase.Error{Code: usecase.ErrorInternal, Reason: "session_read_error"})
	require.EqualError(t, err, "INTERNAL_ERROR (session_read_error)")

	plain := errors.New("boom")
	require.Equal(t, plain, describeError(plain))
}

func TestCLIEnv_DefaultsToSQLiteSessions(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "")
	require.Equal(t, "sqlite", cliEnv("SESSION_BACKEND"))

	t.Setenv("SESSION_BACKEND", "memory")
	require.Equal(t, "memory", cliEnv("SESSION_BACKEND"))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseApp_LogsFailure(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	closeApp(closerFunc(func() error { return nil }))
	require.Empty(t, buf.String())

	closeApp(closerFunc(func() error { return errors.New("database is locked") }))
	require.Contains(t, buf.String(), "failed to close session store")
	require.Contains(t, buf.String(), "database is locked")
}
