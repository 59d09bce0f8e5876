// Package schedule compiles flat node lists into time-ordered entries that
// the drawer and the talker walk during playback.
package schedule

import (
	"sort"

	"github.com/ivlev/scaffoldhero/internal/node"
)

// Entry is one boundary of a schedule and the nodes attached to it.
type Entry[N node.Node] struct {
	StartMs int
	Nodes   []N
}

// OneShot gives every node its own entry at its StartMs, ordered by start.
// Nodes that start together keep their input order.
func OneShot[N node.Node](nodes []N) []Entry[N] {
	entries := make([]Entry[N], 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, Entry[N]{
			StartMs: n.Attr().StartMs,
			Nodes:   []N{n},
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartMs < entries[j].StartMs
	})
	return entries
}

// Window creates an entry for every distinct start and end time. Each entry
// holds the nodes active at that instant, using [StartMs, EndMs), ordered
// by track.
func Window[N node.Node](nodes []N) []Entry[N] {
	seen := make(map[int]struct{}, 2*len(nodes))
	var boundaries []int
	for _, n := range nodes {
		for _, b := range []int{n.Attr().StartMs, n.Attr().EndMs} {
			if _, ok := seen[b]; !ok {
				seen[b] = struct{}{}
				boundaries = append(boundaries, b)
			}
		}
	}
	sort.Ints(boundaries)

	// Sorting once by track keeps every per-boundary subset in track order.
	byTrack := make([]N, len(nodes))
	copy(byTrack, nodes)
	sort.SliceStable(byTrack, func(i, j int) bool {
		return byTrack[i].Attr().TrackIdx < byTrack[j].Attr().TrackIdx
	})

	entries := make([]Entry[N], 0, len(boundaries))
	for _, b := range boundaries {
		active := []N{}
		for _, n := range byTrack {
			if n.Attr().Contains(b) {
				active = append(active, n)
			}
		}
		entries = append(entries, Entry[N]{StartMs: b, Nodes: active})
	}
	return entries
}

// LastBefore returns the index of the last entry starting strictly before
// atMs, or -1 when there is none.
func LastBefore[N node.Node](entries []Entry[N], atMs int) int {
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].StartMs >= atMs
	})
	return idx - 1
}
