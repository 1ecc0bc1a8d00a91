package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// ChannelEnd names one of a channel's two ends.
type ChannelEnd byte

const (
	ChannelEndSender ChannelEnd = iota
	ChannelEndReceiver
)

func (w *FieldWriter) ChannelEnd(e ChannelEnd) { w.U8(byte(e)) }

func (r *FieldReader) ChannelEnd() (ChannelEnd, error) {
	v, err := r.U8()
	return ChannelEnd(v), err
}

// CreateChannel asks the broker to create a new channel with End already
// claimed by the creator (spec.md §4.2). Capacity is meaningful only when
// End == ChannelEndReceiver, same as ClaimChannelEnd.
type CreateChannel struct {
	Serial   ident.Serial
	End      ChannelEnd
	Capacity uint32
}

func (m *CreateChannel) Kind() Kind                        { return KindCreateChannel }
func (m *CreateChannel) ValueField() value.SerializedValue { return nil }
func (m *CreateChannel) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ChannelEnd(m.End)
	if m.End == ChannelEndReceiver {
		w.U32(m.Capacity)
	}
	return w.Bytes()
}

func decodeCreateChannel(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	end, err := fr.ChannelEnd()
	if err != nil {
		return nil, err
	}
	m := &CreateChannel{Serial: ident.Serial(serial), End: end}
	if end == ChannelEndReceiver {
		cap, err := fr.U32()
		if err != nil {
			return nil, err
		}
		m.Capacity = cap
	}
	return m, nil
}

type CreateChannelReply struct {
	Serial ident.Serial
	Cookie ident.ChannelCookie
}

func (m *CreateChannelReply) Kind() Kind                        { return KindCreateChannelReply }
func (m *CreateChannelReply) ValueField() value.SerializedValue { return nil }
func (m *CreateChannelReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ChannelCookie(m.Cookie)
	return w.Bytes()
}

func decodeCreateChannelReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	return &CreateChannelReply{Serial: ident.Serial(serial), Cookie: c}, nil
}

// ClaimChannelEnd claims one end of a previously created channel. Capacity
// is meaningful only when End == ChannelEndReceiver: it is the initial
// number of items the sender may send before blocking on
// AddChannelCapacity (spec.md §3.5).
type ClaimChannelEnd struct {
	Serial   ident.Serial
	Cookie   ident.ChannelCookie
	End      ChannelEnd
	Capacity uint32
}

func (m *ClaimChannelEnd) Kind() Kind                        { return KindClaimChannelEnd }
func (m *ClaimChannelEnd) ValueField() value.SerializedValue { return nil }
func (m *ClaimChannelEnd) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ChannelCookie(m.Cookie)
	w.ChannelEnd(m.End)
	w.U32(m.Capacity)
	return w.Bytes()
}

func decodeClaimChannelEnd(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	end, err := fr.ChannelEnd()
	if err != nil {
		return nil, err
	}
	cap, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &ClaimChannelEnd{Serial: ident.Serial(serial), Cookie: c, End: end, Capacity: cap}, nil
}

type ClaimChannelEndResult byte

const (
	ClaimChannelEndOk ClaimChannelEndResult = iota
	ClaimChannelEndInvalidChannel
	ClaimChannelEndAlreadyClaimed
)

// ClaimChannelEndReply. Capacity is the channel's capacity as the broker
// tracks it: when a receiver successfully claims, it echoes the capacity
// that receiver just granted; when a sender claims after the receiver
// already has, it is what the receiver has granted so far.
type ClaimChannelEndReply struct {
	Serial   ident.Serial
	Result   ClaimChannelEndResult
	Capacity uint32
}

func (m *ClaimChannelEndReply) Kind() Kind                        { return KindClaimChannelEndReply }
func (m *ClaimChannelEndReply) ValueField() value.SerializedValue { return nil }
func (m *ClaimChannelEndReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	if m.Result == ClaimChannelEndOk {
		w.U32(m.Capacity)
	}
	return w.Bytes()
}

func decodeClaimChannelEndReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &ClaimChannelEndReply{Serial: ident.Serial(serial), Result: ClaimChannelEndResult(tag)}
	if m.Result == ClaimChannelEndOk {
		cap, err := fr.U32()
		if err != nil {
			return nil, err
		}
		m.Capacity = cap
	}
	return m, nil
}

// ChannelEndClaimed is broadcast to the connection holding one end when
// the other end gets claimed.
type ChannelEndClaimed struct {
	Cookie   ident.ChannelCookie
	End      ChannelEnd
	Capacity uint32
}

func (m *ChannelEndClaimed) Kind() Kind                        { return KindChannelEndClaimed }
func (m *ChannelEndClaimed) ValueField() value.SerializedValue { return nil }
func (m *ChannelEndClaimed) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ChannelCookie(m.Cookie)
	w.ChannelEnd(m.End)
	w.U32(m.Capacity)
	return w.Bytes()
}

func decodeChannelEndClaimed(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	end, err := fr.ChannelEnd()
	if err != nil {
		return nil, err
	}
	cap, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &ChannelEndClaimed{Cookie: c, End: end, Capacity: cap}, nil
}

type CloseChannelEnd struct {
	Serial ident.Serial
	Cookie ident.ChannelCookie
	End    ChannelEnd
}

func (m *CloseChannelEnd) Kind() Kind                        { return KindCloseChannelEnd }
func (m *CloseChannelEnd) ValueField() value.SerializedValue { return nil }
func (m *CloseChannelEnd) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ChannelCookie(m.Cookie)
	w.ChannelEnd(m.End)
	return w.Bytes()
}

func decodeCloseChannelEnd(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	end, err := fr.ChannelEnd()
	if err != nil {
		return nil, err
	}
	return &CloseChannelEnd{Serial: ident.Serial(serial), Cookie: c, End: end}, nil
}

type CloseChannelEndResult byte

const (
	CloseChannelEndOk CloseChannelEndResult = iota
	CloseChannelEndInvalidChannel
	CloseChannelEndNotClaimed
)

type CloseChannelEndReply struct {
	Serial ident.Serial
	Result CloseChannelEndResult
}

func (m *CloseChannelEndReply) Kind() Kind                        { return KindCloseChannelEndReply }
func (m *CloseChannelEndReply) ValueField() value.SerializedValue { return nil }
func (m *CloseChannelEndReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeCloseChannelEndReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &CloseChannelEndReply{Serial: ident.Serial(serial), Result: CloseChannelEndResult(tag)}, nil
}

// ChannelEndClosed is broadcast to the connection holding one end when the
// other end closes, tearing the channel down.
type ChannelEndClosed struct {
	Cookie ident.ChannelCookie
	End    ChannelEnd
}

func (m *ChannelEndClosed) Kind() Kind                        { return KindChannelEndClosed }
func (m *ChannelEndClosed) ValueField() value.SerializedValue { return nil }
func (m *ChannelEndClosed) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ChannelCookie(m.Cookie)
	w.ChannelEnd(m.End)
	return w.Bytes()
}

func decodeChannelEndClosed(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	end, err := fr.ChannelEnd()
	if err != nil {
		return nil, err
	}
	return &ChannelEndClosed{Cookie: c, End: end}, nil
}

// SendItem carries one channel item. It is used in both directions: a
// sending client sends it to the broker, and the broker relays it
// unchanged (same kind, same value) to the connection holding the
// receiving end (spec.md §3.5).
type SendItem struct {
	Cookie ident.ChannelCookie
	Value  value.SerializedValue
}

func (m *SendItem) Kind() Kind                        { return KindSendItem }
func (m *SendItem) ValueField() value.SerializedValue { return m.Value }
func (m *SendItem) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ChannelCookie(m.Cookie)
	return w.Bytes()
}

func decodeSendItem(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	return &SendItem{Cookie: c, Value: val}, nil
}

// ItemReceived acknowledges that the receiving client's application code
// has consumed one item, distinct from the explicit capacity grants of
// AddChannelCapacity.
type ItemReceived struct {
	Cookie ident.ChannelCookie
}

func (m *ItemReceived) Kind() Kind                        { return KindItemReceived }
func (m *ItemReceived) ValueField() value.SerializedValue { return nil }
func (m *ItemReceived) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ChannelCookie(m.Cookie)
	return w.Bytes()
}

func decodeItemReceived(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	return &ItemReceived{Cookie: c}, nil
}

// AddChannelCapacity grants the sending end additional capacity to send
// more items without blocking.
type AddChannelCapacity struct {
	Cookie   ident.ChannelCookie
	Capacity uint32
}

func (m *AddChannelCapacity) Kind() Kind                        { return KindAddChannelCapacity }
func (m *AddChannelCapacity) ValueField() value.SerializedValue { return nil }
func (m *AddChannelCapacity) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ChannelCookie(m.Cookie)
	w.U32(m.Capacity)
	return w.Bytes()
}

func decodeAddChannelCapacity(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ChannelCookie()
	if err != nil {
		return nil, err
	}
	cap, err := fr.U32()
	if err != nil {
		return nil, err
	}
	return &AddChannelCapacity{Cookie: c, Capacity: cap}, nil
}

func init() {
	register(KindCreateChannel, decodeCreateChannel)
	register(KindCreateChannelReply, decodeCreateChannelReply)
	register(KindClaimChannelEnd, decodeClaimChannelEnd)
	register(KindClaimChannelEndReply, decodeClaimChannelEndReply)
	register(KindChannelEndClaimed, decodeChannelEndClaimed)
	register(KindCloseChannelEnd, decodeCloseChannelEnd)
	register(KindCloseChannelEndReply, decodeCloseChannelEndReply)
	register(KindChannelEndClosed, decodeChannelEndClosed)
	register(KindSendItem, decodeSendItem)
	register(KindItemReceived, decodeItemReceived)
	register(KindAddChannelCapacity, decodeAddChannelCapacity)
}
