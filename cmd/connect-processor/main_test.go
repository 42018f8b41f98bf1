package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/connect"
)

var fixtures = filepath.Join("..", "..", "testdata", "requests.json")

// globalArgs points the processor at the fixtures file and a temporary
// SQLite history.
func globalArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"connect-processor",
		"--fixtures", fixtures,
		"--products", "PRD-1,PRD-2",
		"--log-path", filepath.Join(dir, "processor.log"),
		"--store", "sqlite:" + filepath.Join(dir, "runs.db"),
	}
}

func TestRun_TracesPendingRequests(t *testing.T) {
	var out bytes.Buffer
	args := globalArgs(t)

	err := newApp(&out).Run(context.Background(), append(args, "run"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"PR-0001 : AS-0001 : CT-0001 : PRD-1 : pending",
		"PR-0002 : AS-0002 : CT-0001 : PRD-2 : pending",
		"processed=2 completed=2 failed=0 skipped=0",
	}, lines)

	out.Reset()
	err = newApp(&out).Run(context.Background(), append(args, "runs", "--request", "PR-0002"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PR-0002")
	assert.Contains(t, out.String(), "completed")
	assert.NotContains(t, out.String(), "PR-0001")
}

func TestRun_ApprovesWhenAsked(t *testing.T) {
	var out bytes.Buffer
	args := append(globalArgs(t), "run", "--approve-template", "TL-000-000-000")

	require.NoError(t, newApp(&out).Run(context.Background(), args))
	assert.Contains(t, out.String(), "processed=2 completed=2")
}

func TestRun_ApprovalFlagsAreExclusive(t *testing.T) {
	args := append(globalArgs(t), "run", "--approve-template", "TL-1", "--approve-tile", "text")

	err := newApp(&bytes.Buffer{}).Run(context.Background(), args)
	require.ErrorContains(t, err, "mutually exclusive")
}

func TestRun_MissingAPIConfig(t *testing.T) {
	args := []string{"connect-processor", "--log-path", filepath.Join(t.TempDir(), "p.log"), "run"}

	err := newApp(&bytes.Buffer{}).Run(context.Background(), args)
	require.ErrorIs(t, err, connect.ErrConfigMissing)
}

func TestServe_StopsWhenContextEnds(t *testing.T) {
	args := globalArgs(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	err := newApp(&bytes.Buffer{}).Run(ctx, append(args, "serve", "--schedule", "@every 1s"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run(context.Background(), append(args, "runs", "--status", "completed")))
	assert.Contains(t, out.String(), "PR-0001")
}

func TestPrintRuns(t *testing.T) {
	var out bytes.Buffer
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, printRuns(&out, []*connect.Run{
		{ID: "run-1", RequestID: "PR-1", FlowName: "Basic Flow", Status: connect.RunSkipped, Reason: "guard", StartedAt: started},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "run-1")
	assert.Contains(t, lines[1], "2024-05-01 12:00:00")
	assert.Contains(t, lines[1], "guard")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseEnv_ReportsToErrOut(t *testing.T) {
	var errOut bytes.Buffer
	closeEnv(closerFunc(func() error { return errors.New("disk full") }), &errOut)
	assert.Equal(t, "connect-processor: close environment: disk full\n", errOut.String())

	errOut.Reset()
	closeEnv(closerFunc(func() error { return nil }), &errOut)
	assert.Empty(t, errOut.String())
}
