package models

import (
	"encoding/json"
	"fmt"
)

type ReactionKind uint8

const (
	ReactionHeart ReactionKind = iota
	ReactionLaugh
	ReactionSurprise
	ReactionSad
	ReactionFire

	NumReactionKinds = 5
)

var reactionNames = [NumReactionKinds]string{"heart", "laugh", "surprise", "sad", "fire"}

// ReactionKinds returns every kind in the fixed enumeration order.
func ReactionKinds() []ReactionKind {
	return []ReactionKind{ReactionHeart, ReactionLaugh, ReactionSurprise, ReactionSad, ReactionFire}
}

func ParseReactionKind(s string) (ReactionKind, bool) {
	for i, name := range reactionNames {
		if name == s {
			return ReactionKind(i), true
		}
	}
	return 0, false
}

func (k ReactionKind) Valid() bool {
	return int(k) < NumReactionKinds
}

func (k ReactionKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ReactionKind(%d)", uint8(k))
	}
	return reactionNames[k]
}

func (k ReactionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown reaction kind %d", uint8(k))
	}
	return []byte(reactionNames[k]), nil
}

func (k *ReactionKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseReactionKind(string(b))
	if !ok {
		return fmt.Errorf("unknown reaction kind %q", string(b))
	}
	*k = parsed
	return nil
}

// Counts holds one non-negative count per reaction kind, indexed by kind.
type Counts [NumReactionKinds]int

func (c Counts) Get(k ReactionKind) int {
	if !k.Valid() {
		return 0
	}
	return c[k]
}

func (c Counts) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, NumReactionKinds)
	for i, name := range reactionNames {
		out[name] = c[i]
	}
	return json.Marshal(out)
}

// UnmarshalJSON rejects unknown kinds; missing kinds read as zero and
// negative values are clamped to zero.
func (c *Counts) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Counts
	for name, n := range raw {
		k, ok := ParseReactionKind(name)
		if !ok {
			return fmt.Errorf("unknown reaction kind %q", name)
		}
		if n < 0 {
			n = 0
		}
		out[k] = n
	}
	*c = out
	return nil
}

// Ledger pairs the per-kind counts of one review with the single active
// reaction of every user who reacted to it.
type Ledger struct {
	Counts  Counts                  `json:"counts"`
	Choices map[string]ReactionKind `json:"user_choice"`
}

func NewLedger() Ledger {
	return Ledger{Choices: make(map[string]ReactionKind)}
}

func (l Ledger) Clone() Ledger {
	choices := make(map[string]ReactionKind, len(l.Choices))
	for user, k := range l.Choices {
		choices[user] = k
	}
	return Ledger{Counts: l.Counts, Choices: choices}
}

func (l Ledger) Choice(userID string) (ReactionKind, bool) {
	k, ok := l.Choices[userID]
	return k, ok
}

// Consistent reports whether every count equals the number of users whose
// active reaction is that kind.
func (l Ledger) Consistent() bool {
	var tally Counts
	for _, k := range l.Choices {
		if !k.Valid() {
			return false
		}
		tally[k]++
	}
	return tally == l.Counts
}
