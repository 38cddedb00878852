package reactive

import (
	"sync"
	"time"
)

type player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type round struct {
	Number      int               `json:"number"`
	Prompt      string            `json:"prompt"`
	Submissions map[string]string `json:"submissions"`
}

type settings struct {
	MaxPlayers int `json:"maxPlayers"`
}

type gameState struct {
	Started  bool             `json:"started"`
	Round    *round           `json:"round"`
	Players  []*player        `json:"players"`
	Scores   map[string][]int `json:"scores"`
	Settings settings         `json:"settings"`
	Label    string
	Ignored  string `json:"-"`
	secret   string
}

// AddPlayer mutates the original directly; calls through a Node bypass
// change publication.
func (g *gameState) AddPlayer(name string) int {
	g.Players = append(g.Players, &player{Name: name})
	return len(g.Players)
}

// Total sums every score for the named players.
func (g *gameState) Total(names ...string) int {
	total := 0
	for _, name := range names {
		for _, s := range g.Scores[name] {
			total += s
		}
	}
	return total
}

func newGame() *gameState {
	return &gameState{
		Round:    &round{Number: 1, Prompt: "draw a cat", Submissions: map[string]string{}},
		Players:  []*player{{Name: "ann"}, {Name: "bob"}},
		Scores:   map[string][]int{"ann": {1}},
		Settings: settings{MaxPlayers: 4},
	}
}

// recorder collects emitted values.
type recorder struct {
	values []any
}

func (r *recorder) push(v any) {
	r.values = append(r.values, v)
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	mu          sync.Mutex
	published   []Change
	rebound     []string
	derived     int
	passes      int
	invalidated []InvalidationReason
}

func (o *recordingObserver) ChangePublished(_ *Node, c Change, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published = append(o.published, c)
}

func (o *recordingObserver) PathRebound(p Path, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rebound = append(o.rebound, p.String())
}

func (o *recordingObserver) DerivedEmitted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.derived++
}

func (o *recordingObserver) TrackerPass(string, int, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.passes++
}

func (o *recordingObserver) TrackerInvalidated(_ string, reason InvalidationReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidated = append(o.invalidated, reason)
}
