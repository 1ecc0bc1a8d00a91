package client

import "github.com/aldrin-go/aldrin/ident"

// serialAllocator mints request serials and reuses freed ones before
// growing, the same linear-probe-avoiding idiom as the teacher's
// qos.Handler.allocatePacketID, restated with an explicit free list instead
// of a probe loop since Aldrin serials are not bounded to 16 bits.
type serialAllocator struct {
	next  ident.Serial
	free  []ident.Serial
	inUse map[ident.Serial]struct{}
}

func newSerialAllocator() *serialAllocator {
	return &serialAllocator{next: 1, inUse: make(map[ident.Serial]struct{})}
}

func (a *serialAllocator) alloc() ident.Serial {
	var s ident.Serial
	if n := len(a.free); n > 0 {
		s = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		s = a.next
		a.next++
	}
	a.inUse[s] = struct{}{}
	return s
}

// release returns s to the free list. Releasing a serial not currently in
// use is a programming error: it means a reply was matched twice.
func (a *serialAllocator) release(s ident.Serial) {
	if _, ok := a.inUse[s]; !ok {
		panic("aldrin: serial released twice")
	}
	delete(a.inUse, s)
	a.free = append(a.free, s)
}
