// Package buslisten is the broker's bus-listener filter engine: it
// stores each listener's filters keyed by hashed object/service uuid and
// matches an event against one listener's filter set at a time, so a
// caller checks every candidate listener in turn, the same matching
// idiom as the teacher's topic.Trie/topic.matcher restated over
// (ObjectUuid, ServiceUuid) tuples instead of topic segments.
package buslisten

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/cespare/xxhash/v2"
)

// Filter narrows the events a listener receives; a nil field means "any".
type Filter struct {
	Object  *ident.ObjectUuid
	Service *ident.ServiceUuid
}

// Event is the minimal shape buslisten needs to match against filters;
// broker.go adapts proto.BusEvent to this.
type Event struct {
	Object  ident.ObjectUuid
	Service ident.ServiceUuid
	HasService bool
}

func hash16(b [16]byte) uint64 { return xxhash.Sum64(b[:]) }

type filterKey struct {
	object  uint64
	service uint64
	hasObj  bool
	hasSvc  bool
}

func keyOf(f Filter) filterKey {
	var k filterKey
	if f.Object != nil {
		k.hasObj = true
		k.object = hash16(f.Object.Bytes())
	}
	if f.Service != nil {
		k.hasSvc = true
		k.service = hash16(f.Service.Bytes())
	}
	return k
}

// Engine indexes every bus listener's filter set. It is not safe for
// concurrent use; the broker's single dispatch loop is its only caller.
type Engine struct {
	listeners map[ident.BusListenerCookie]map[filterKey]Filter
}

func NewEngine() *Engine {
	return &Engine{listeners: make(map[ident.BusListenerCookie]map[filterKey]Filter)}
}

func (e *Engine) AddFilter(listener ident.BusListenerCookie, f Filter) {
	set, ok := e.listeners[listener]
	if !ok {
		set = make(map[filterKey]Filter)
		e.listeners[listener] = set
	}
	set[keyOf(f)] = f
}

func (e *Engine) RemoveFilter(listener ident.BusListenerCookie, f Filter) {
	if set, ok := e.listeners[listener]; ok {
		delete(set, keyOf(f))
	}
}

func (e *Engine) Clear(listener ident.BusListenerCookie) {
	delete(e.listeners, listener)
}

func (e *Engine) Forget(listener ident.BusListenerCookie) {
	delete(e.listeners, listener)
}

// Matches reports whether listener has at least one filter matching ev.
// A listener with no filters at all matches nothing: filters must be
// added explicitly before starting.
func (e *Engine) Matches(listener ident.BusListenerCookie, ev Event) bool {
	set, ok := e.listeners[listener]
	if !ok {
		return false
	}
	objHash := hash16(ev.Object.Bytes())
	var svcHash uint64
	if ev.HasService {
		svcHash = hash16(ev.Service.Bytes())
	}

	for _, f := range set {
		if f.Object != nil && hash16(f.Object.Bytes()) != objHash {
			continue
		}
		if f.Service != nil {
			if !ev.HasService || hash16(f.Service.Bytes()) != svcHash {
				continue
			}
		}
		return true
	}
	return false
}

// MatchingListeners returns every listener among candidates whose filter
// set matches ev.
func (e *Engine) MatchingListeners(ev Event, candidates []ident.BusListenerCookie) []ident.BusListenerCookie {
	out := make([]ident.BusListenerCookie, 0, len(candidates))
	for _, l := range candidates {
		if e.Matches(l, ev) {
			out = append(out, l)
		}
	}
	return out
}
