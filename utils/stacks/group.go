package stacks

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Group is a set of crashes sharing one normalized stack.
type Group struct {
	Stack []string
	Count int
}

// Groups counts normalized stacks by their exact label sequence.
type Groups struct {
	index map[string]*Group
	order []*Group
}

func NewGroups() *Groups {
	return &Groups{index: make(map[string]*Group)}
}

// Add records one occurrence of stack. The first stack seen for a key stays
// the group's representative.
func (g *Groups) Add(stack []string) {
	key := stackKey(stack)
	if group, ok := g.index[key]; ok {
		group.Count++
		return
	}

	group := &Group{Stack: stack, Count: 1}
	g.index[key] = group
	g.order = append(g.order, group)
}

// Len returns the number of distinct stacks.
func (g *Groups) Len() int {
	return len(g.order)
}

// Report snapshots the groups sorted ascending by count. Groups with equal
// counts keep the order in which they were first seen.
func (g *Groups) Report() Report {
	groups := lo.Map(g.order, func(group *Group, _ int) Group {
		return Group{Stack: group.Stack, Count: group.Count}
	})
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count < groups[j].Count
	})

	return Report{
		Groups: groups,
		Total: lo.SumBy(groups, func(group Group) int {
			return group.Count
		}),
	}
}

// Report is the final, sorted view over all groups.
type Report struct {
	Groups []Group
	Total  int
}

// Percent returns the share of count in the report total. An empty report
// yields 0 rather than NaN.
func (r Report) Percent(count int) float64 {
	if r.Total == 0 {
		return 0
	}
	return 100.0 * float64(count) / float64(r.Total)
}

// stackKey length-prefixes every label so that distinct sequences such as
// ["ab", "c"] and ["a", "bc"] never share a key.
func stackKey(stack []string) string {
	var b strings.Builder
	for _, label := range stack {
		b.WriteString(strconv.Itoa(len(label)))
		b.WriteByte(':')
		b.WriteString(label)
	}
	return b.String()
}
