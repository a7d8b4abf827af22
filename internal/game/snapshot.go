package game

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/brood/internal/evolution"
)

// SnapshotVersion is bumped when the save layout changes.
const SnapshotVersion = 1

// Snapshot is the persisted part of a game: progress and equipped traits.
// Boards are not saved; they are re-dealt from (seed, round).
type Snapshot struct {
	Version  int                `json:"version"`
	Progress Progress           `json:"progress"`
	Equipped evolution.Equipped `json:"equipped"`
}

// SnapshotOf extracts the saved part of a state.
func SnapshotOf(s State) Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Progress: s.Progress.clone(),
		Equipped: s.Equipped.Clone(),
	}
}

// EncodeSnapshot serializes the saved part of a state.
func EncodeSnapshot(s State) (string, error) {
	data, err := json.Marshal(SnapshotOf(s))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses and sanity-checks a saved blob.
func DecodeSnapshot(data string) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("snapshot version %d not supported", snap.Version)
	}
	p := snap.Progress
	if p.CurrentLevel < 1 || p.GlobalRound < 1 {
		return Snapshot{}, fmt.Errorf("snapshot has invalid level %d / round %d", p.CurrentLevel, p.GlobalRound)
	}
	if p.Population < 0 || p.EvolutionPoints < 0 || p.LifetimeEP < p.EvolutionPoints {
		return Snapshot{}, fmt.Errorf("snapshot has invalid counters")
	}
	if p.CurrentLevelIndex < NoLevel || p.CurrentCycle < 0 {
		return Snapshot{}, fmt.Errorf("snapshot has invalid ladder position")
	}
	return snap, nil
}

// Restore rebuilds a playable state from a snapshot. The board for the
// saved round is dealt again; a pending level advance shows its prompt.
func Restore(r *Rules, snap Snapshot) State {
	s := State{
		Progress: snap.Progress.clone(),
		Equipped: snap.Equipped.Clone(),
	}
	if s.Progress.PurchasedNodes == nil {
		s.Progress.PurchasedNodes = []string{}
	}
	if s.Progress.PendingAdvance {
		s.UI.ShowLevelComplete = true
		return s
	}
	s.Board = dealBoard(r, s)
	return s
}
