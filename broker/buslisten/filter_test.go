package buslisten_test

import (
	"testing"

	"github.com/aldrin-go/aldrin/broker/buslisten"
	"github.com/aldrin-go/aldrin/ident"
	"github.com/stretchr/testify/require"
)

func TestEngineNoFiltersMatchesNothing(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()

	require.False(t, e.Matches(listener, buslisten.Event{Object: ident.NewObjectUuid()}))
}

func TestEngineObjectFilter(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()
	obj := ident.NewObjectUuid()
	other := ident.NewObjectUuid()
	e.AddFilter(listener, buslisten.Filter{Object: &obj})

	require.True(t, e.Matches(listener, buslisten.Event{Object: obj}))
	require.False(t, e.Matches(listener, buslisten.Event{Object: other}))
}

func TestEngineServiceFilterRequiresService(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()
	obj := ident.NewObjectUuid()
	svc := ident.NewServiceUuid()
	e.AddFilter(listener, buslisten.Filter{Object: &obj, Service: &svc})

	require.True(t, e.Matches(listener, buslisten.Event{Object: obj, Service: svc, HasService: true}))
	require.False(t, e.Matches(listener, buslisten.Event{Object: obj}))
}

func TestEngineRemoveFilter(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()
	obj := ident.NewObjectUuid()
	f := buslisten.Filter{Object: &obj}
	e.AddFilter(listener, f)
	require.True(t, e.Matches(listener, buslisten.Event{Object: obj}))

	e.RemoveFilter(listener, f)
	require.False(t, e.Matches(listener, buslisten.Event{Object: obj}))
}

func TestEngineClearAndForget(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()
	obj := ident.NewObjectUuid()
	e.AddFilter(listener, buslisten.Filter{Object: &obj})

	e.Clear(listener)
	require.False(t, e.Matches(listener, buslisten.Event{Object: obj}))

	e.AddFilter(listener, buslisten.Filter{Object: &obj})
	e.Forget(listener)
	require.False(t, e.Matches(listener, buslisten.Event{Object: obj}))
}

func TestEngineMatchingListeners(t *testing.T) {
	e := buslisten.NewEngine()
	a := ident.NewBusListenerCookie()
	bCookie := ident.NewBusListenerCookie()
	obj := ident.NewObjectUuid()
	e.AddFilter(a, buslisten.Filter{Object: &obj})

	got := e.MatchingListeners(buslisten.Event{Object: obj}, []ident.BusListenerCookie{a, bCookie})
	require.Equal(t, []ident.BusListenerCookie{a}, got)
}

func TestEngineWildcardFilterMatchesAnyObject(t *testing.T) {
	e := buslisten.NewEngine()
	listener := ident.NewBusListenerCookie()
	e.AddFilter(listener, buslisten.Filter{})

	require.True(t, e.Matches(listener, buslisten.Event{Object: ident.NewObjectUuid()}))
}
