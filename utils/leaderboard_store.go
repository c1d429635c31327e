package utils

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LeaderboardEntry is one row of the materialized leaderboard view. The ID is
// a string so externally supplied entries survive round-trips unchanged.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Score int    `json:"score"`
}

// HistoryRecord is an immutable snapshot of the full leaderboard taken at a write.
type HistoryRecord struct {
	At       time.Time          `json:"at"`
	Snapshot []LeaderboardEntry `json:"snapshot"`
}

// LeaderboardStore persists the leaderboard as two JSON documents: the flat
// entry list and an append-only history of {at, snapshot} records. A mutex
// serializes read-modify-write sequences within this process.
type LeaderboardStore struct {
	mu          sync.Mutex
	dataPath    string
	historyPath string
}

// NewLeaderboardStore creates a store rooted at dir, creating it when missing.
func NewLeaderboardStore(dir string) *LeaderboardStore {
	_ = os.MkdirAll(dir, 0o755)
	return &LeaderboardStore{
		dataPath:    filepath.Join(dir, "leaderboard.json"),
		historyPath: filepath.Join(dir, "leaderboard-history.json"),
	}
}

// Read returns the stored entries sorted descending by score. A missing data
// file reads as an empty leaderboard.
func (s *LeaderboardStore) Read() ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	sortByScoreDesc(entries)
	return entries, nil
}

// Replace overwrites the whole leaderboard with the given entries.
func (s *LeaderboardStore) Replace(entries []LeaderboardEntry) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	return s.commitLocked(entries)
}

// MergeUpdates applies sparse {id, score} updates: entries with a known id get
// their score replaced, unknown ids are appended as new entries.
func (s *LeaderboardStore) MergeUpdates(updates []LeaderboardEntry) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(existing))
	for i, e := range existing {
		index[e.ID] = i
	}
	for _, u := range updates {
		if i, ok := index[u.ID]; ok {
			existing[i].Score = u.Score
		} else {
			index[u.ID] = len(existing)
			existing = append(existing, u)
		}
	}
	return s.commitLocked(existing)
}

// ApplySingle replaces the score of one existing entry; an unknown id is a no-op.
func (s *LeaderboardStore) ApplySingle(id string, score int) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].ID == id {
			existing[i].Score = score
		}
	}
	return s.commitLocked(existing)
}

// commitLocked sorts, persists, and appends one history snapshot. The history
// append is best-effort: an unreadable history file is reinitialized from just
// this snapshot, and history problems never fail the write.
func (s *LeaderboardStore) commitLocked(entries []LeaderboardEntry) ([]LeaderboardEntry, error) {
	sortByScoreDesc(entries)

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.dataPath, b, 0o644); err != nil {
		return nil, err
	}

	s.appendHistoryLocked(HistoryRecord{At: time.Now().UTC(), Snapshot: entries})
	return entries, nil
}

func (s *LeaderboardStore) readLocked() ([]LeaderboardEntry, error) {
	raw, err := os.ReadFile(s.dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []LeaderboardEntry{}, nil
		}
		return nil, err
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	return entries, nil
}

func (s *LeaderboardStore) appendHistoryLocked(record HistoryRecord) {
	var records []HistoryRecord
	if raw, err := os.ReadFile(s.historyPath); err == nil {
		// corrupt history falls through to reinitialization
		_ = json.Unmarshal(raw, &records)
	}
	records = append(records, record)
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.historyPath, b, 0o644); err != nil && Sugar != nil {
		Sugar.Warnf("leaderboard history append failed: %v", err)
	}
}

// History returns all appended snapshots, oldest first.
func (s *LeaderboardStore) History() ([]HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.historyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []HistoryRecord{}, nil
		}
		return nil, err
	}
	var records []HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Stable so entries with equal scores keep their prior relative order.
func sortByScoreDesc(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
