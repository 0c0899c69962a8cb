package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakaocal/internal/dedup"
	"kakaocal/internal/ics"
)

const transcript = "Talk_2024.1.6 02:20-1.txt\n" +
	"Date Saved : Jan 6, 2024 at 2:20 AM\n" +
	"\n" +
	"Friday, January 5, 2024\n" +
	"Jan 5, 2024 at 11:30 PM, Alice: Hello world\n" +
	"Saturday, January 6, 2024\n" +
	"Jan 6, 2024 at 2:15 AM, Alice: still awake\n" +
	"Jan 6, 2024 at 9:00 AM, Bob: good morning\n" +
	"Alice left this chatroom.\n"

func testOptions() Options {
	return Options{
		CutoffHour:      4,
		DurationMinutes: 30,
		Location:        time.UTC,
		Now: func() time.Time {
			return time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
		},
	}
}

func TestProcess_ScenarioLateNightMerge(t *testing.T) {
	res := Process([]Source{{Origin: "a.txt", Content: transcript}}, dedup.New(), testOptions())

	assert.Equal(t, 3, res.Parsed)
	require.Len(t, res.Groups, 2)

	alice := res.Groups[0]
	assert.Equal(t, "Alice", alice.Sender)
	assert.Equal(t, "01/05/2024", alice.DisplayDay)
	require.Len(t, alice.Messages, 2)
	assert.Equal(t, "Hello world", alice.Messages[0].Body)
	assert.Equal(t, "still awake", alice.Messages[1].Body)
	assert.Equal(t, "01/05/2024", alice.Messages[1].DiaryDay)
	assert.Equal(t, "Alice - Hello world (+1 more)", ics.Subject(alice))

	assert.Equal(t, "Bob", res.Groups[1].Sender)
	assert.Equal(t, "01/06/2024", res.Groups[1].DisplayDay)

	assert.Contains(t, res.Calendar, "SUMMARY:Alice - Hello world (+1 more)\r\n")
	assert.Contains(t, res.Calendar, "UID:"+alice.ID+"@kakao-chat\r\n")
}

func TestProcess_SecondRunYieldsNothing(t *testing.T) {
	store := dedup.New()
	sources := []Source{{Origin: "a.txt", Content: transcript}}

	first := Process(sources, store, testOptions())
	require.False(t, first.Empty())

	second := Process(sources, store, testOptions())
	assert.True(t, second.Empty())
	assert.Empty(t, second.Fresh)
	assert.Empty(t, second.Calendar)
	assert.Equal(t, 3, second.Parsed)
}

func TestProcess_DuplicateLinesAcrossOrigins(t *testing.T) {
	line := "Jan 5, 2024 at 11:30 PM, Alice: Hello world\n"
	sources := []Source{
		{Origin: "a.txt", Content: line + line},
		{Origin: "b.txt", Content: line},
	}

	res := Process(sources, nil, testOptions())

	// Same origin collapses, a different origin is a different identity.
	assert.Len(t, res.Fresh, 2)
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Messages, 2)
}

func TestProcess_StableAcrossSourceOrder(t *testing.T) {
	a := Source{Origin: "a.txt", Content: transcript}
	b := Source{Origin: "b.txt", Content: "Jan 5, 2024 at 10:00 PM, Carol: evening\n"}

	one := Process([]Source{a, b}, nil, testOptions())
	two := Process([]Source{b, a}, nil, testOptions())

	assert.Equal(t, one.Groups, two.Groups)
	assert.Equal(t, one.Calendar, two.Calendar)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBatch_RunTwice(t *testing.T) {
	dir := t.TempDir()
	chat := filepath.Join(dir, "chats", "talk.txt")
	writeFile(t, chat, transcript)

	b := Batch{
		Inputs:     []string{chat, filepath.Join(dir, "missing.txt")},
		OutputPath: filepath.Join(dir, "out", "calendar.ics"),
		StatePath:  filepath.Join(dir, "state.json"),
		CSVPath:    filepath.Join(dir, "out", "calendar.csv"),
		Options:    testOptions(),
	}

	first, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{chat}, first.Files)
	assert.True(t, first.OutputWritten)
	assert.True(t, first.StateSaved)
	assert.Len(t, first.Groups, 2)

	written, err := os.ReadFile(b.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, first.Calendar, string(written))

	csv, err := os.ReadFile(b.CSVPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "Entry Date,Sender,Subject,Message Count,Entry ID\r\n"))

	assert.Equal(t, 3, dedup.Load(b.StatePath).Len())

	require.NoError(t, os.Remove(b.OutputPath))

	second, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Empty())
	assert.False(t, second.OutputWritten)
	assert.True(t, second.StateSaved)

	_, err = os.Stat(b.OutputPath)
	assert.True(t, os.IsNotExist(err), "no output expected when nothing is new")
	assert.Equal(t, 3, dedup.Load(b.StatePath).Len())
}

func TestBatch_DryRunPersistsNothing(t *testing.T) {
	dir := t.TempDir()
	chat := filepath.Join(dir, "talk.txt")
	writeFile(t, chat, transcript)

	var stdout bytes.Buffer
	b := Batch{
		Inputs:     []string{chat},
		OutputPath: filepath.Join(dir, "calendar.ics"),
		StatePath:  filepath.Join(dir, "state.json"),
		DryRun:     true,
		Stdout:     &stdout,
		Options:    testOptions(),
	}

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Calendar, stdout.String())
	assert.False(t, res.OutputWritten)
	assert.False(t, res.StateSaved)

	for _, p := range []string{b.OutputPath, b.StatePath} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should not exist", p)
	}
}

func TestBatch_UsageErrors(t *testing.T) {
	_, err := Batch{}.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = Batch{Inputs: []string{filepath.Join(t.TempDir(), "nope.txt")}}.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoMatches)
	assert.True(t, errors.Is(err, ErrNoInputs))
}

func TestBatch_NoReadableInputs(t *testing.T) {
	// /proc/self/mem stats as a regular file but reading it fails.
	const unreadable = "/proc/self/mem"
	if _, err := os.Stat(unreadable); err != nil {
		t.Skipf("%s not available: %v", unreadable, err)
	}

	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")
	output := filepath.Join(dir, "out.ics")

	res, err := Batch{
		Inputs:     []string{unreadable},
		OutputPath: output,
		StatePath:  state,
		Options:    testOptions(),
	}.Run(context.Background())

	assert.ErrorIs(t, err, ErrNoReadable)
	assert.ErrorIs(t, err, ErrNoInputs)
	assert.Equal(t, []string{unreadable}, res.Files)
	assert.False(t, res.StateSaved)
	for _, p := range []string{state, output} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should not exist", p)
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "y")
	writeFile(t, filepath.Join(dir, "c.log"), "z")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	got := ResolveInputs([]string{
		filepath.Join(dir, "*.txt"),
		filepath.Join(dir, "sub"),
		filepath.Join(dir, "c.log"),
		filepath.Join(dir, "missing"),
	})

	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.log"),
	}, got)
}
