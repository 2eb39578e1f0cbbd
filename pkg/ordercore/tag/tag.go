// Package tag produces short human-legible broker order tags.
package tag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

var actionCodes = map[model.Priority]string{
	model.PriorityKillSwitch:         "KIL",
	model.PriorityRiskExit:           "RSK",
	model.PriorityStrategyExit:       "EXT",
	model.PriorityStrategyAdjustment: "ADJ",
	model.PriorityStrategyEntry:      "ENT",
	model.PriorityManual:             "MAN",
}

// Generator builds 10-char tags: 3-char strategy prefix, 3-char action code,
// 4-digit sequence scoped per (prefix, action) pair.
type Generator struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewGenerator() *Generator {
	return &Generator{counters: make(map[string]int)}
}

func (g *Generator) Generate(strategyID string, priority model.Priority) string {
	prefix := "GEN"
	if strategyID != "" {
		prefix = strings.ToUpper(strategyID)
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
	}
	action, ok := actionCodes[priority]
	if !ok {
		action = "MAN"
	}

	scope := prefix + action
	g.mu.Lock()
	seq := g.counters[scope]
	g.counters[scope] = seq + 1
	g.mu.Unlock()

	return fmt.Sprintf("%s%s%04d", prefix, action, seq)
}

// ResetCounters zeroes every sequence counter; used at session rollover.
func (g *Generator) ResetCounters() {
	g.mu.Lock()
	g.counters = make(map[string]int)
	g.mu.Unlock()
}
