// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "turns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	turns := []TurnRecord{
		{SessionID: "s1", Channel: ChannelHTTP, Duration: 1200 * time.Millisecond, TextParts: 10, Chars: 240, Timestamp: base},
		{SessionID: "s1", Channel: ChannelDirect, Duration: 800 * time.Millisecond, TextParts: 4, ProgressParts: 2, Chars: 90, Timestamp: base.Add(time.Minute)},
		{SessionID: "s2", Channel: ChannelHTTP, Duration: 500 * time.Millisecond, TextParts: 1, Chars: 12, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, rec := range turns {
		require.NoError(t, store.Record(rec))
	}

	recent, err := store.Recent("s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	require.Equal(t, ChannelDirect, recent[0].Channel)
	require.Equal(t, ChannelHTTP, recent[1].Channel)
	require.Equal(t, 800*time.Millisecond, recent[0].Duration)
	require.Equal(t, 2, recent[0].ProgressParts)
}

func TestSummaryWindow(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-2 * time.Hour)
	records := []TurnRecord{
		{SessionID: "s1", Channel: ChannelHTTP, Duration: time.Second, Chars: 100, Timestamp: base},
		{SessionID: "s1", Channel: ChannelHTTP, Duration: 3 * time.Second, Chars: 300, Failed: true, Timestamp: base.Add(time.Minute)},
		// Outside the window.
		{SessionID: "s1", Channel: ChannelHTTP, Duration: 9 * time.Second, Chars: 900, Timestamp: base.Add(-24 * time.Hour)},
	}
	for _, rec := range records {
		require.NoError(t, store.Record(rec))
	}

	sum, err := store.Summary(base.Add(-time.Minute), base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, sum.Turns)
	require.Equal(t, 1, sum.Failures)
	require.Equal(t, 4*time.Second, sum.TotalDuration)
	require.Equal(t, 2*time.Second, sum.AvgDuration)
	require.Equal(t, 400, sum.TotalChars)
}

func TestSummaryEmpty(t *testing.T) {
	store := openTestStore(t)

	sum, err := store.Summary(time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Zero(t, sum.Turns)
	require.Zero(t, sum.TotalDuration)
	require.Zero(t, sum.AvgDuration)
}

func TestDeleteSession(t *testing.T) {
	store := openTestStore(t)

	for _, session := range []string{"s1", "s1", "s2"} {
		require.NoError(t, store.Record(TurnRecord{SessionID: session, Channel: ChannelHTTP, Duration: time.Second}))
	}

	require.NoError(t, store.DeleteSession("s1"))

	recent, err := store.Recent("s1", 10)
	require.NoError(t, err)
	require.Empty(t, recent)

	other, err := store.Recent("s2", 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(TurnRecord{SessionID: "s1", Channel: ChannelHTTP, Duration: time.Second}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	recent, err := reopened.Recent("s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
