package discoverer_test

import (
	"context"
	"testing"
	"time"

	"github.com/aldrin-go/aldrin/broker"
	"github.com/aldrin-go/aldrin/client"
	"github.com/aldrin-go/aldrin/client/discoverer"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/proto"
	"github.com/aldrin-go/aldrin/transporttest"
	"github.com/stretchr/testify/require"
)

func newBrokerAndClient(t *testing.T, b *broker.Broker) *client.Client {
	t.Helper()
	clientEnd, brokerEnd := transporttest.Pipe()
	b.Connect(context.Background(), brokerEnd)

	c := client.New(clientEnd)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	runCtx, runCancel := context.WithCancel(context.Background())
	t.Cleanup(runCancel)
	go func() { _ = c.Run(runCtx) }()
	return c
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestDiscovererTwoRequiredServices mirrors the two-required-service
// scenario: Created fires only once both services are present on the same
// object, and Destroyed fires as soon as either disappears.
func TestDiscovererTwoRequiredServices(t *testing.T) {
	b := broker.New()
	bctx, bcancel := context.WithCancel(context.Background())
	defer bcancel()
	go func() { _ = b.Run(bctx) }()

	watcher := newBrokerAndClient(t, b)
	owner := newBrokerAndClient(t, b)

	s1 := ident.NewServiceUuid()
	s2 := ident.NewServiceUuid()

	type key string
	d, err := discoverer.New(ctxT(t), watcher, []discoverer.Entry[key]{
		{Key: "both", Services: []ident.ServiceUuid{s1, s2}},
	})
	require.NoError(t, err)
	defer d.Close(ctxT(t))

	obj, err := owner.CreateObject(ctxT(t))
	require.NoError(t, err)

	svc1, err := obj.CreateService(ctxT(t), s1, proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)

	select {
	case ev := <-d.Events:
		t.Fatalf("unexpected event before second service: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	_, err = obj.CreateService(ctxT(t), s2, proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)

	select {
	case ev := <-d.Events:
		require.Equal(t, discoverer.Created, ev.Kind)
		require.Equal(t, key("both"), ev.Key)
		require.Equal(t, obj.Cookie, ev.Object.Cookie)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Created")
	}

	require.NoError(t, svc1.Destroy(ctxT(t)))

	select {
	case ev := <-d.Events:
		require.Equal(t, discoverer.Destroyed, ev.Kind)
		require.Equal(t, key("both"), ev.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Destroyed")
	}
}

// TestDiscovererServiceIdLookup covers the post-Created lookup path: once a
// key's required services are all present, ServiceId/ServiceIds resolve
// their current cookies without another round trip to the broker.
func TestDiscovererServiceIdLookup(t *testing.T) {
	b := broker.New()
	bctx, bcancel := context.WithCancel(context.Background())
	defer bcancel()
	go func() { _ = b.Run(bctx) }()

	watcher := newBrokerAndClient(t, b)
	owner := newBrokerAndClient(t, b)

	s1 := ident.NewServiceUuid()
	s2 := ident.NewServiceUuid()

	type key string
	d, err := discoverer.New(ctxT(t), watcher, []discoverer.Entry[key]{
		{Key: "both", Services: []ident.ServiceUuid{s1, s2}},
	})
	require.NoError(t, err)
	defer d.Close(ctxT(t))

	obj, err := owner.CreateObject(ctxT(t))
	require.NoError(t, err)
	svc1, err := obj.CreateService(ctxT(t), s1, proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)
	svc2, err := obj.CreateService(ctxT(t), s2, proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)

	select {
	case ev := <-d.Events:
		require.Equal(t, discoverer.Created, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Created")
	}

	sid1, ok := d.ServiceId(obj.Uuid, s1)
	require.True(t, ok)
	require.Equal(t, svc1.Cookie, sid1.Cookie)

	ids, ok := d.ServiceIds("both", obj.Uuid)
	require.True(t, ok)
	require.Len(t, ids, 2)
	cookies := map[ident.ServiceCookie]bool{ids[0].Cookie: true, ids[1].Cookie: true}
	require.True(t, cookies[svc1.Cookie])
	require.True(t, cookies[svc2.Cookie])
}

func TestDiscovererCurrentOnly(t *testing.T) {
	b := broker.New()
	bctx, bcancel := context.WithCancel(context.Background())
	defer bcancel()
	go func() { _ = b.Run(bctx) }()

	owner := newBrokerAndClient(t, b)
	watcher := newBrokerAndClient(t, b)

	s1 := ident.NewServiceUuid()
	obj, err := owner.CreateObject(ctxT(t))
	require.NoError(t, err)
	_, err = obj.CreateService(ctxT(t), s1, proto.ServiceInfo{Version: 1}, nil)
	require.NoError(t, err)

	require.NoError(t, watcher.Sync(ctxT(t)))

	type key string
	events, err := discoverer.Current(ctxT(t), watcher, []discoverer.Entry[key]{
		{Key: "one", Services: []ident.ServiceUuid{s1}},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, discoverer.Created, events[0].Kind)
	require.Equal(t, key("one"), events[0].Key)
}
