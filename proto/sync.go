package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// Sync is a fence: the broker replies with SyncReply only after every
// message it received before Sync has been fully processed, letting a
// client wait for ordering guarantees it cannot otherwise observe
// (spec.md §3.7).
type Sync struct {
	Serial ident.Serial
}

func (m *Sync) Kind() Kind                        { return KindSync }
func (m *Sync) ValueField() value.SerializedValue { return nil }
func (m *Sync) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	return w.Bytes()
}

func decodeSync(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &Sync{Serial: ident.Serial(serial)}, nil
}

type SyncReply struct {
	Serial ident.Serial
}

func (m *SyncReply) Kind() Kind                        { return KindSyncReply }
func (m *SyncReply) ValueField() value.SerializedValue { return nil }
func (m *SyncReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	return w.Bytes()
}

func decodeSyncReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &SyncReply{Serial: ident.Serial(serial)}, nil
}

func init() {
	register(KindSync, decodeSync)
	register(KindSyncReply, decodeSyncReply)
}
