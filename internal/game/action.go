package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the closed set of inputs the reducer accepts. The unexported
// apply method keeps the set sealed: every variant must define its own
// transition or the package does not compile.
type Action interface {
	Kind() string
	apply(r *Rules, s State) (State, bool)
}

// Init starts a fresh game.
type Init struct {
	Seed     string `json:"seed"`
	TestMode bool   `json:"test_mode"`
	FastPeek bool   `json:"fast_peek"`
}

// Place picks one hidden tile.
type Place struct {
	Index int `json:"index"`
}

// FullReveal shows every unpicked tile as a shadow.
type FullReveal struct{}

// ShowEndModal scores the round.
type ShowEndModal struct{}

// AdmireBoard hides the end modal to look at the board.
type AdmireBoard struct{}

// ReturnResults brings the end modal back.
type ReturnResults struct{}

// NextSeason closes the round and deals the next one.
type NextSeason struct{}

// AdvanceLevel moves past a completed static level.
type AdvanceLevel struct{}

// PurchaseEvolutionNode buys an upgrade with evolution points.
type PurchaseEvolutionNode struct {
	NodeID string `json:"node_id"`
}

// EquipTrait puts a trait in a slot. An empty TraitID clears the slot.
type EquipTrait struct {
	Slot    string `json:"slot"`
	TraitID string `json:"trait_id"`
}

// DismissGrowthToast clears the board-growth toast.
type DismissGrowthToast struct{}

// DismissEvolutionPrompt clears the evolution prompt.
type DismissEvolutionPrompt struct{}

// DismissMessage clears the transient message.
type DismissMessage struct{}

func (Init) Kind() string { return "init" }
func (Place) Kind() string { return "place" }
func (FullReveal) Kind() string { return "full_reveal" }
func (ShowEndModal) Kind() string { return "show_end_modal" }
func (AdmireBoard) Kind() string { return "admire_board" }
func (ReturnResults) Kind() string { return "return_results" }
func (NextSeason) Kind() string { return "next_season" }
func (AdvanceLevel) Kind() string { return "advance_level" }
func (PurchaseEvolutionNode) Kind() string { return "purchase_evolution_node" }
func (EquipTrait) Kind() string { return "equip_trait" }
func (DismissGrowthToast) Kind() string { return "dismiss_growth_toast" }
func (DismissEvolutionPrompt) Kind() string { return "dismiss_evolution_prompt" }
func (DismissMessage) Kind() string { return "dismiss_message" }

// envelope is the wire form of every action.
type envelope struct {
	Type     string `json:"type"`
	Seed     string `json:"seed,omitempty"`
	TestMode bool   `json:"test_mode,omitempty"`
	FastPeek bool   `json:"fast_peek,omitempty"`
	Index    *int   `json:"index,omitempty"`
	NodeID   string `json:"node_id,omitempty"`
	Slot     string `json:"slot,omitempty"`
	TraitID  string `json:"trait_id,omitempty"`
}

// DecodeAction parses {"type": "...", ...}. Type names are case-insensitive
// and accept either snake_case or SCREAMING_CASE.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(env.Type)) {
	case "init":
		return Init{Seed: env.Seed, TestMode: env.TestMode, FastPeek: env.FastPeek}, nil
	case "place":
		if env.Index == nil {
			return nil, fmt.Errorf("place needs an index")
		}
		return Place{Index: *env.Index}, nil
	case "full_reveal":
		return FullReveal{}, nil
	case "show_end_modal":
		return ShowEndModal{}, nil
	case "admire_board":
		return AdmireBoard{}, nil
	case "return_results":
		return ReturnResults{}, nil
	case "next_season":
		return NextSeason{}, nil
	case "advance_level":
		return AdvanceLevel{}, nil
	case "purchase_evolution_node":
		if env.NodeID == "" {
			return nil, fmt.Errorf("purchase_evolution_node needs a node_id")
		}
		return PurchaseEvolutionNode{NodeID: env.NodeID}, nil
	case "equip_trait":
		if env.Slot == "" {
			return nil, fmt.Errorf("equip_trait needs a slot")
		}
		return EquipTrait{Slot: env.Slot, TraitID: env.TraitID}, nil
	case "dismiss_growth_toast":
		return DismissGrowthToast{}, nil
	case "dismiss_evolution_prompt":
		return DismissEvolutionPrompt{}, nil
	case "dismiss_message":
		return DismissMessage{}, nil
	case "":
		return nil, fmt.Errorf("action type is required")
	}
	return nil, fmt.Errorf("unknown action type %q", env.Type)
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	env := envelope{Type: a.Kind()}
	switch v := a.(type) {
	case Init:
		env.Seed, env.TestMode, env.FastPeek = v.Seed, v.TestMode, v.FastPeek
	case Place:
		idx := v.Index
		env.Index = &idx
	case PurchaseEvolutionNode:
		env.NodeID = v.NodeID
	case EquipTrait:
		env.Slot, env.TraitID = v.Slot, v.TraitID
	}
	return json.Marshal(env)
}
