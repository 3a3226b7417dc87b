package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/database"
)

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"yes", true},
		{"y\n", false},
		{"no\n", false},
		{"", false},
	}
	for _, tc := range tests {
		var out bytes.Buffer
		assert.Equal(t, tc.want, confirm(strings.NewReader(tc.input), &out, "continue? "), "%q", tc.input)
		assert.Equal(t, "continue? ", out.String())
	}
}

func TestPrintFAQs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printFAQs(&buf, nil))
	assert.Equal(t, "No questions recorded yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, printFAQs(&buf, []*database.FAQEntry{
		{OriginalQuestion: "Where is\nHall A?", QuestionCount: 3, LastSeenAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{OriginalQuestion: "Parking?", QuestionCount: 0},
	}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "QUESTION")
	assert.Contains(t, lines[1], "2024-05-01 10:30")
	assert.Contains(t, lines[1], "Where is Hall A?")
	assert.Contains(t, lines[2], "-")
}

func TestPrintRecent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printRecent(&buf, nil))
	assert.Equal(t, "The history is empty.\n", buf.String())

	buf.Reset()
	require.NoError(t, printRecent(&buf, []*database.Message{
		{ID: 4, UserText: "hi", BotText: "hello", CreatedAt: time.Date(2024, 5, 1, 10, 30, 5, 0, time.UTC)},
	}))
	assert.Contains(t, buf.String(), "2024-05-01 10:30:05")
	assert.Contains(t, buf.String(), "hello")
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "archive", "faq", "recent"})

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, defaultConfigPath, flag.DefValue)
}

// writeTestConfig writes a database-only configuration: no provider key and
// no Telegram token, as on a host that only runs the archive job.
func writeTestConfig(t *testing.T) (configPath, archiveDir string) {
	t.Helper()
	t.Setenv("FAQCHAT_GEMINI_API_KEY", "")
	t.Setenv("FAQCHAT_TELEGRAM_TOKEN", "")
	dir := t.TempDir()
	archiveDir = filepath.Join(dir, "archives")
	configPath = filepath.Join(dir, "config.yaml")
	body := "database:\n  path: " + filepath.Join(dir, "chat.db") + "\n" +
		"archive:\n  dir: " + archiveDir + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, archiveDir
}

func TestArchiveCmd(t *testing.T) {
	configPath, archiveDir := writeTestConfig(t)

	t.Run("aborts without confirmation", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetIn(strings.NewReader("no\n"))
		root.SetArgs([]string{"--config", configPath, "archive"})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "Type 'yes' to continue")
		assert.Contains(t, out.String(), "Aborted.")
	})

	t.Run("forced run on an empty log", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"--config", configPath, "archive", "--force"})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "Nothing to archive")
		assert.NoDirExists(t, archiveDir)
	})
}

func TestServeCmd_RejectsDatabaseOnlyConfig(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", configPath, "serve"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestFAQAndRecentCmd_EmptyLog(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configPath, "recent"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "The history is empty.\n", out.String())

	root = newRootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", configPath, "faq", "--live"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "No questions recorded yet.\n", out.String())
}

func TestExitError(t *testing.T) {
	t.Parallel()

	var exit *exitError
	err := error(&exitError{code: 2})
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.code)
	assert.Equal(t, "exit status 2", err.Error())
}
