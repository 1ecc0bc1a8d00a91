// Package discoverer implements a higher-level search over the raw bus
// event stream: callers register a required set of services per key, and
// the Discoverer emits Created once every required service is present on
// some object, and Destroyed once the object or any required service goes
// away again. It composes a client.BusListener the way the teacher's
// session.Manager composes a background expiry-check loop over a
// mutex-protected registry (session/manager.go's expiryChecker/
// checkExpiredSessions), restated here as an event-driven reducer instead
// of a ticker.
package discoverer

import (
	"context"
	"sync"

	"github.com/aldrin-go/aldrin/client"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
)

// EventKind discriminates the two events a Discoverer emits.
type EventKind int

const (
	Created EventKind = iota
	Destroyed
)

func (k EventKind) String() string {
	if k == Created {
		return "Created"
	}
	return "Destroyed"
}

// Event reports that every service required under Key is now present on
// Object (Created), or that Object (or one of those services) has gone
// away (Destroyed).
type Event[K comparable] struct {
	Kind   EventKind
	Key    K
	Object ident.ObjectId
}

// Entry registers one key's search criteria. Object narrows the search to
// one specific object uuid; its zero value matches any object. Services
// may be empty, in which case the key tracks the object's existence alone.
type Entry[K comparable] struct {
	Key      K
	Object   ident.ObjectUuid
	Services []ident.ServiceUuid
}

func (e Entry[K]) anyObject() bool { return e.Object == ident.ObjectUuid{} }

type trackedEntry[K comparable] struct {
	entry    Entry[K]
	required map[ident.ServiceUuid]struct{}
	// createdFor tracks, per satisfying object uuid, whether Created has
	// fired for this entry so Destroyed fires exactly once to match it.
	createdFor map[ident.ObjectUuid]struct{}
}

func newTrackedEntry[K comparable](e Entry[K]) *trackedEntry[K] {
	req := make(map[ident.ServiceUuid]struct{}, len(e.Services))
	for _, s := range e.Services {
		req[s] = struct{}{}
	}
	return &trackedEntry[K]{entry: e, required: req, createdFor: make(map[ident.ObjectUuid]struct{})}
}

// Discoverer tracks live objects against a fixed set of Entry criteria and
// reports Created/Destroyed transitions on Events. Call Close to tear down
// its bus listener.
type Discoverer[K comparable] struct {
	c   *client.Client
	bl  *client.BusListener
	mu  sync.Mutex
	entries []*trackedEntry[K]

	// present[objectUuid] maps each required service uuid currently seen on
	// that object to its current cookie, across every entry; objectIds maps
	// uuid to the most recently observed full ObjectId (cookie changes
	// across re-creation under the same uuid).
	present   map[ident.ObjectUuid]map[ident.ServiceUuid]ident.ServiceCookie
	objectIds map[ident.ObjectUuid]ident.ObjectId

	Events chan Event[K]
	stop   chan struct{}
	done   chan struct{}
}

// New starts a Discoverer that opens an All-scope bus listener and tracks
// transitions live until Close is called.
func New[K comparable](ctx context.Context, c *client.Client, entries []Entry[K]) (*Discoverer[K], error) {
	d, err := newDiscoverer(ctx, c, entries)
	if err != nil {
		return nil, err
	}
	if err := d.bl.Start(ctx, proto.BusListenerScopeAll); err != nil {
		return nil, err
	}
	go d.run()
	return d, nil
}

// Current resolves entries against the broker's present state only: it
// opens a Current-scope bus listener, consumes the snapshot, reports every
// key already satisfied as Created, and tears the listener down before
// returning. It never reports Destroyed, since it does not keep running.
func Current[K comparable](ctx context.Context, c *client.Client, entries []Entry[K]) ([]Event[K], error) {
	d, err := newDiscoverer(ctx, c, entries)
	if err != nil {
		return nil, err
	}
	if err := d.bl.Start(ctx, proto.BusListenerScopeCurrent); err != nil {
		return nil, err
	}

	var out []Event[K]
drain:
	for {
		select {
		case ev := <-d.bl.Events:
			if fired, ok := d.apply(ev); ok {
				out = append(out, fired...)
			}
		case <-d.bl.Finished:
			for {
				select {
				case ev := <-d.bl.Events:
					if fired, ok := d.apply(ev); ok {
						out = append(out, fired...)
					}
				default:
					break drain
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	_ = d.bl.Destroy(ctx)
	return out, nil
}

func newDiscoverer[K comparable](ctx context.Context, c *client.Client, entries []Entry[K]) (*Discoverer[K], error) {
	bl, err := c.CreateBusListener(ctx)
	if err != nil {
		return nil, err
	}

	d := &Discoverer[K]{
		c:         c,
		bl:        bl,
		present:   make(map[ident.ObjectUuid]map[ident.ServiceUuid]ident.ServiceCookie),
		objectIds: make(map[ident.ObjectUuid]ident.ObjectId),
		Events:    make(chan Event[K], 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	seenServices := make(map[ident.ServiceUuid]struct{})
	for _, e := range entries {
		te := newTrackedEntry(e)
		d.entries = append(d.entries, te)
		if !e.anyObject() {
			obj := e.Object
			if err := bl.AddFilter(ctx, proto.BusListenerFilter{Object: &obj}); err != nil {
				return nil, err
			}
		}
		if e.anyObject() && len(te.required) == 0 {
			if err := bl.AddFilter(ctx, proto.BusListenerFilter{}); err != nil {
				return nil, err
			}
		}
		for svc := range te.required {
			if _, ok := seenServices[svc]; ok {
				continue
			}
			seenServices[svc] = struct{}{}
			svc := svc
			if err := bl.AddFilter(ctx, proto.BusListenerFilter{Service: &svc}); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Discoverer[K]) run() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.bl.Events:
			if fired, ok := d.apply(ev); ok {
				for _, e := range fired {
					select {
					case d.Events <- e:
					case <-d.stop:
						return
					}
				}
			}
		case <-d.stop:
			return
		}
	}
}

// apply folds one BusEvent into present/objectIds and returns whichever
// Created/Destroyed events it causes, guarded by mu so Close (which reads
// nothing here) and concurrent calls from Current's synchronous drain
// never race with run's goroutine.
func (d *Discoverer[K]) apply(ev proto.BusEvent) ([]Event[K], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var fired []Event[K]
	switch ev.Kind {
	case proto.BusEventObjectCreated:
		d.objectIds[ev.Object.Uuid] = ev.Object
		if _, ok := d.present[ev.Object.Uuid]; !ok {
			d.present[ev.Object.Uuid] = make(map[ident.ServiceUuid]ident.ServiceCookie)
		}
		fired = append(fired, d.reevaluate(ev.Object.Uuid)...)

	case proto.BusEventObjectDestroyed:
		fired = append(fired, d.teardownObject(ev.Object.Uuid)...)
		delete(d.present, ev.Object.Uuid)
		delete(d.objectIds, ev.Object.Uuid)

	case proto.BusEventServiceCreated:
		oid := ev.Service.Object
		d.objectIds[oid.Uuid] = oid
		set, ok := d.present[oid.Uuid]
		if !ok {
			set = make(map[ident.ServiceUuid]ident.ServiceCookie)
			d.present[oid.Uuid] = set
		}
		set[ev.Service.Uuid] = ev.Service.Cookie
		fired = append(fired, d.reevaluate(oid.Uuid)...)

	case proto.BusEventServiceDestroyed:
		oid := ev.Service.Object
		if set, ok := d.present[oid.Uuid]; ok {
			delete(set, ev.Service.Uuid)
		}
		fired = append(fired, d.reevaluate(oid.Uuid)...)
	}
	return fired, len(fired) > 0
}

// reevaluate checks every entry against objectUuid's current service set
// and returns the Created/Destroyed transitions that result.
func (d *Discoverer[K]) reevaluate(objectUuid ident.ObjectUuid) []Event[K] {
	oid, known := d.objectIds[objectUuid]
	present := d.present[objectUuid]

	var out []Event[K]
	for _, te := range d.entries {
		if !te.entry.anyObject() && te.entry.Object != objectUuid {
			continue
		}
		_, wasCreated := te.createdFor[objectUuid]
		satisfied := known && subsetOf(te.required, present)

		switch {
		case satisfied && !wasCreated:
			te.createdFor[objectUuid] = struct{}{}
			out = append(out, Event[K]{Kind: Created, Key: te.entry.Key, Object: oid})
		case !satisfied && wasCreated:
			delete(te.createdFor, objectUuid)
			out = append(out, Event[K]{Kind: Destroyed, Key: te.entry.Key, Object: oid})
		}
	}
	return out
}

// teardownObject fires Destroyed for every entry still marked created for
// objectUuid, used when the object itself disappears outright.
func (d *Discoverer[K]) teardownObject(objectUuid ident.ObjectUuid) []Event[K] {
	oid := d.objectIds[objectUuid]
	var out []Event[K]
	for _, te := range d.entries {
		if _, ok := te.createdFor[objectUuid]; ok {
			delete(te.createdFor, objectUuid)
			out = append(out, Event[K]{Kind: Destroyed, Key: te.entry.Key, Object: oid})
		}
	}
	return out
}

func subsetOf(required map[ident.ServiceUuid]struct{}, present map[ident.ServiceUuid]ident.ServiceCookie) bool {
	for s := range required {
		if _, ok := present[s]; !ok {
			return false
		}
	}
	return true
}

// ServiceId resolves one of object's required services to its current full
// ServiceId, for use right after a Created event — the event itself only
// carries the object identity, so callers that want to call a required
// service need this to learn its cookie (grounded on the original Rust
// implementation's DiscovererEvent::service_id, which serves the same
// purpose for its typed proxies). The second return is false if object is
// unknown or does not presently carry service.
func (d *Discoverer[K]) ServiceId(object ident.ObjectUuid, service ident.ServiceUuid) (ident.ServiceId, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	oid, ok := d.objectIds[object]
	if !ok {
		return ident.ServiceId{}, false
	}
	cookie, ok := d.present[object][service]
	if !ok {
		return ident.ServiceId{}, false
	}
	return ident.ServiceId{Object: oid, Uuid: service, Cookie: cookie}, true
}

// ServiceIds resolves every service entry registered for key under object to
// its current full ServiceId. It returns false if any of them is not
// presently known, mirroring DiscovererEvent::service_ids's all-or-nothing
// contract in the original implementation.
func (d *Discoverer[K]) ServiceIds(key K, object ident.ObjectUuid) ([]ident.ServiceId, bool) {
	d.mu.Lock()
	var services []ident.ServiceUuid
	for _, te := range d.entries {
		if te.entry.Key == key {
			for s := range te.required {
				services = append(services, s)
			}
			break
		}
	}
	d.mu.Unlock()

	out := make([]ident.ServiceId, 0, len(services))
	for _, s := range services {
		sid, ok := d.ServiceId(object, s)
		if !ok {
			return nil, false
		}
		out = append(out, sid)
	}
	return out, true
}

// Close stops live tracking and destroys the underlying bus listener.
func (d *Discoverer[K]) Close(ctx context.Context) error {
	close(d.stop)
	<-d.done
	return d.bl.Destroy(ctx)
}
