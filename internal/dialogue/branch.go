package dialogue

import (
	"math/rand/v2"
	"sync"
)

// Branch is a named entry point that resolves to a conversation.
// Resolve may return nil, in which case the talker treats the branch as a dead end.
type Branch interface {
	Name() string
	Resolve() *Conversation
}

// StaticBranch always resolves to the same conversation.
type StaticBranch struct {
	BranchName string
	Target     *Conversation
}

func (b *StaticBranch) Name() string { return b.BranchName }

func (b *StaticBranch) Resolve() *Conversation { return b.Target }

// WeightedConversation is one option of a RandomBranch.
type WeightedConversation struct {
	Conversation *Conversation
	Weight       float64
}

// RandomBranch picks one of its options at random, proportionally to weight.
// Safe to resolve from several rooms at once.
type RandomBranch struct {
	BranchName string
	Options    []WeightedConversation

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomBranch builds a RandomBranch. A nil rng uses a randomly seeded source.
func NewRandomBranch(name string, options []WeightedConversation, rng *rand.Rand) *RandomBranch {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomBranch{BranchName: name, Options: options, rng: rng}
}

func (b *RandomBranch) Name() string { return b.BranchName }

func (b *RandomBranch) Resolve() *Conversation {
	total := 0.0
	for _, o := range b.Options {
		if o.Weight > 0 {
			total += o.Weight
		}
	}
	if total <= 0 {
		return nil
	}

	b.mu.Lock()
	pick := b.rng.Float64() * total
	b.mu.Unlock()

	for _, o := range b.Options {
		if o.Weight <= 0 {
			continue
		}
		if pick < o.Weight {
			return o.Conversation
		}
		pick -= o.Weight
	}
	// float rounding: fall back to the last weighted option
	for i := len(b.Options) - 1; i >= 0; i-- {
		if b.Options[i].Weight > 0 {
			return b.Options[i].Conversation
		}
	}
	return nil
}
