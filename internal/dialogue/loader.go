package dialogue

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/goccy/go-yaml"
)

type actionDoc map[string]string

type linkDoc struct {
	ThenContinue bool        `yaml:"then_continue"`
	Actions      []actionDoc `yaml:"actions"`
}

type partDoc struct {
	Text            string             `yaml:"text"`
	WaitS           float64            `yaml:"wait_s"` // fade-out in seconds
	StopUntilForced bool               `yaml:"stop_until_forced"`
	OnStart         []actionDoc        `yaml:"on_start"`
	OnEnd           []actionDoc        `yaml:"on_end"`
	Links           map[string]linkDoc `yaml:"links"`
}

type conversationDoc struct {
	OnStart []actionDoc `yaml:"on_start"`
	OnEnd   []actionDoc `yaml:"on_end"`
	AndThen string      `yaml:"and_then"`
	Parts   []partDoc   `yaml:"parts"`
}

type weightedDoc struct {
	Conversation string   `yaml:"conversation"`
	Weight       *float64 `yaml:"weight"` // defaults to 1
}

type branchDoc struct {
	Conversation string        `yaml:"conversation"`
	Random       []weightedDoc `yaml:"random"`
}

type talkerDoc struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Width int    `yaml:"width"`
}

type collectableDoc struct {
	ID     string `yaml:"id"`
	Item   string `yaml:"item"`
	Sound  string `yaml:"sound"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Locked bool   `yaml:"locked"`
}

type wordDoc struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

type itemDoc struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type graphDoc struct {
	Talkers       []talkerDoc                `yaml:"talkers"`
	Branches      map[string]branchDoc       `yaml:"branches"`
	Conversations map[string]conversationDoc `yaml:"conversations"`
	Collectables  []collectableDoc           `yaml:"collectables"`
	Items         []itemDoc                  `yaml:"items"`
	Words         []wordDoc                  `yaml:"words"`
}

// LoadOptions tunes graph construction.
type LoadOptions struct {
	// Rand seeds random branches. Nil uses a random seed per branch.
	Rand *rand.Rand
}

// Load reads and validates a graph file.
func Load(path string, opts LoadOptions) (*Graph, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read graph %q: %w", cleanPath, err)
	}
	g, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", cleanPath, err)
	}
	return g, nil
}

// Parse builds and validates a graph from YAML.
//
// Every conversation is also reachable as a branch under its own id unless
// an authored branch already uses that name.
func Parse(data []byte, opts LoadOptions) (*Graph, error) {
	var doc graphDoc
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	return build(&doc, opts)
}

func build(doc *graphDoc, opts LoadOptions) (*Graph, error) {
	g := &Graph{
		Conversations: make(map[string]*Conversation, len(doc.Conversations)),
		Branches:      make(map[string]Branch, len(doc.Branches)+len(doc.Conversations)),
	}

	// Pass 1: conversations and parts without cross references
	for _, id := range sortedKeys(doc.Conversations) {
		cd := doc.Conversations[id]
		conv := &Conversation{ID: id}
		for i, pd := range cd.Parts {
			part, err := buildPart(pd)
			if err != nil {
				return nil, fmt.Errorf("conversation %s part %d: %w", id, i, err)
			}
			conv.Parts = append(conv.Parts, part)
		}
		g.Conversations[id] = conv
	}

	// Pass 2: branches
	for _, name := range sortedKeys(doc.Branches) {
		b, err := buildBranch(g, name, doc.Branches[name], opts)
		if err != nil {
			return nil, err
		}
		g.Branches[name] = b
	}
	for id, conv := range g.Conversations {
		if _, exists := g.Branches[id]; !exists {
			g.Branches[id] = &StaticBranch{BranchName: id, Target: conv}
		}
	}

	// Pass 3: successors and hook actions
	for _, id := range sortedKeys(doc.Conversations) {
		cd := doc.Conversations[id]
		conv := g.Conversations[id]
		if cd.AndThen != "" {
			next := g.Branch(cd.AndThen)
			if next == nil {
				return nil, fmt.Errorf("%w: conversation %s and_then %s", ErrBranchNotFound, id, cd.AndThen)
			}
			conv.AndThen = next
		}
		if err := bindActions(&conv.OnStart, cd.OnStart); err != nil {
			return nil, fmt.Errorf("conversation %s on_start: %w", id, err)
		}
		if err := bindActions(&conv.OnEnd, cd.OnEnd); err != nil {
			return nil, fmt.Errorf("conversation %s on_end: %w", id, err)
		}
		for i, pd := range cd.Parts {
			part := conv.Parts[i]
			if err := bindActions(&part.OnStart, pd.OnStart); err != nil {
				return nil, fmt.Errorf("conversation %s part %d on_start: %w", id, i, err)
			}
			if err := bindActions(&part.OnEnd, pd.OnEnd); err != nil {
				return nil, fmt.Errorf("conversation %s part %d on_end: %w", id, i, err)
			}
			for _, lr := range part.Links {
				if err := bindActions(&lr.OnLink, pd.Links[lr.ID].Actions); err != nil {
					return nil, fmt.Errorf("conversation %s part %d link %s: %w", id, i, lr.ID, err)
				}
			}
		}
	}

	if err := buildWorld(g, doc); err != nil {
		return nil, err
	}
	if err := g.checkActionTargets(); err != nil {
		return nil, err
	}
	return g, nil
}

func buildPart(pd partDoc) (*Part, error) {
	if pd.WaitS < 0 {
		return nil, fmt.Errorf("%w: %.2fs", ErrNegativeWait, pd.WaitS)
	}
	part := &Part{
		Text:            pd.Text,
		Wait:            time.Duration(pd.WaitS * float64(time.Second)),
		StopUntilForced: pd.StopUntilForced,
	}
	inText := LinkIDs(pd.Text)
	for id := range pd.Links {
		if !slices.Contains(inText, id) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLink, id)
		}
	}
	// responders follow the order links appear in the text
	for _, id := range inText {
		ld, ok := pd.Links[id]
		if !ok || part.Link(id) != nil {
			continue
		}
		part.Links = append(part.Links, &LinkResponder{ID: id, ThenContinue: ld.ThenContinue})
	}
	return part, nil
}

func buildBranch(g *Graph, name string, bd branchDoc, opts LoadOptions) (Branch, error) {
	switch {
	case bd.Conversation != "" && len(bd.Random) > 0:
		return nil, fmt.Errorf("%w: branch %s sets both conversation and random", ErrInvalidBranch, name)
	case bd.Conversation != "":
		conv := g.Conversation(bd.Conversation)
		if conv == nil {
			return nil, fmt.Errorf("%w: branch %s -> %s", ErrConversationNotFound, name, bd.Conversation)
		}
		return &StaticBranch{BranchName: name, Target: conv}, nil
	case len(bd.Random) > 0:
		options := make([]WeightedConversation, 0, len(bd.Random))
		for _, wd := range bd.Random {
			conv := g.Conversation(wd.Conversation)
			if conv == nil {
				return nil, fmt.Errorf("%w: branch %s -> %s", ErrConversationNotFound, name, wd.Conversation)
			}
			weight := 1.0
			if wd.Weight != nil {
				weight = *wd.Weight
			}
			if weight < 0 {
				return nil, fmt.Errorf("%w: branch %s has negative weight", ErrInvalidBranch, name)
			}
			options = append(options, WeightedConversation{Conversation: conv, Weight: weight})
		}
		return NewRandomBranch(name, options, opts.Rand), nil
	default:
		return nil, fmt.Errorf("%w: branch %s has no target", ErrInvalidBranch, name)
	}
}

func buildWorld(g *Graph, doc *graphDoc) error {
	seen := map[string]bool{}
	for _, td := range doc.Talkers {
		if seen[td.ID] {
			return fmt.Errorf("%w: talker %s", ErrDuplicateID, td.ID)
		}
		seen[td.ID] = true
		if td.Start != "" && g.Branch(td.Start) == nil {
			return fmt.Errorf("%w: talker %s starts at %s", ErrBranchNotFound, td.ID, td.Start)
		}
		g.Talkers = append(g.Talkers, TalkerDef(td))
	}

	seen = map[string]bool{}
	for _, item := range doc.Items {
		if seen[item.ID] {
			return fmt.Errorf("%w: item %s", ErrDuplicateID, item.ID)
		}
		seen[item.ID] = true
		g.Items = append(g.Items, ItemDef(item))
	}

	collectables := map[string]bool{}
	for _, cd := range doc.Collectables {
		if collectables[cd.ID] {
			return fmt.Errorf("%w: collectable %s", ErrDuplicateID, cd.ID)
		}
		collectables[cd.ID] = true
		g.Collectables = append(g.Collectables, CollectableDef(cd))
	}

	seen = map[string]bool{}
	for _, wd := range doc.Words {
		if seen[wd.ID] {
			return fmt.Errorf("%w: word %s", ErrDuplicateID, wd.ID)
		}
		seen[wd.ID] = true
		g.Words = append(g.Words, WordDef(wd))
	}
	return nil
}

func bindActions(hook *Hook, docs []actionDoc) error {
	actions := make([]Action, 0, len(docs))
	for _, ad := range docs {
		if len(ad) != 1 {
			return fmt.Errorf("%w: each action needs exactly one key, got %d", ErrUnknownAction, len(ad))
		}
		for k, v := range ad {
			kind := ActionKind(k)
			if !knownActions[kind] {
				return fmt.Errorf("%w: %s", ErrUnknownAction, k)
			}
			actions = append(actions, Action{Kind: kind, Value: v})
		}
	}
	Bind(hook, actions...)
	return nil
}

// checkActionTargets walks every hook once with a recording Effects to make
// sure goto, unlock and collect actions point at authored entries.
func (g *Graph) checkActionTargets() error {
	items := map[string]bool{}
	for _, it := range g.Items {
		items[it.ID] = true
	}
	collectables := map[string]bool{}
	for _, c := range g.Collectables {
		collectables[c.ID] = true
	}

	rec := &recordingEffects{}
	for _, id := range sortedKeys(g.Conversations) {
		conv := g.Conversations[id]
		conv.OnStart.Fire(Cue{Effects: rec})
		conv.OnEnd.Fire(Cue{Effects: rec})
		for _, part := range conv.Parts {
			part.OnStart.Fire(Cue{Effects: rec})
			part.OnEnd.Fire(Cue{Effects: rec})
			for _, lr := range part.Links {
				lr.OnLink.Fire(Cue{Effects: rec})
			}
		}
	}

	for _, a := range rec.actions {
		switch a.Kind {
		case ActionGoto:
			if g.Branch(a.Value) == nil {
				return fmt.Errorf("%w: goto %s", ErrBranchNotFound, a.Value)
			}
		case ActionUnlock:
			if len(items) > 0 && !items[a.Value] {
				return fmt.Errorf("%w: unlock of unknown item %s", ErrUnknownAction, a.Value)
			}
		case ActionCollect:
			if !collectables[a.Value] {
				return fmt.Errorf("%w: collect of unknown collectable %s", ErrUnknownAction, a.Value)
			}
		}
	}
	return nil
}

type recordingEffects struct {
	actions []Action
}

func (r *recordingEffects) Apply(_ Cue, a Action) {
	r.actions = append(r.actions, a)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
