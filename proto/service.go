package proto

import (
	"github.com/aldrin-go/aldrin/ident"
	"github.com/aldrin-go/aldrin/value"
)

// ServiceInfo describes a service's schema at creation time: its version,
// an optional stable TypeId for introspection lookups, and whether it
// wants every event subscribed regardless of individual subscriptions
// (spec.md §3.2).
type ServiceInfo struct {
	Version        uint32
	TypeId         *ident.TypeId
	SubscribeAll   bool
}

func (w *FieldWriter) ServiceInfo(si ServiceInfo) {
	w.U32(si.Version)
	w.OptTypeId(si.TypeId)
	w.Bool(si.SubscribeAll)
}

func (r *FieldReader) ServiceInfo() (ServiceInfo, error) {
	version, err := r.U32()
	if err != nil {
		return ServiceInfo{}, err
	}
	typeId, err := r.OptTypeId()
	if err != nil {
		return ServiceInfo{}, err
	}
	subAll, err := r.Bool()
	if err != nil {
		return ServiceInfo{}, err
	}
	return ServiceInfo{Version: version, TypeId: typeId, SubscribeAll: subAll}, nil
}

// CreateService2 asks the broker to create a service on an existing object.
type CreateService2 struct {
	Serial       ident.Serial
	Object       ident.ObjectCookie
	Uuid         ident.ServiceUuid
	Info         ServiceInfo
}

func (m *CreateService2) Kind() Kind                        { return KindCreateService2 }
func (m *CreateService2) ValueField() value.SerializedValue { return nil }
func (m *CreateService2) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ObjectCookie(m.Object)
	w.ServiceUuid(m.Uuid)
	w.ServiceInfo(m.Info)
	return w.Bytes()
}

func decodeCreateService2(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	obj, err := fr.ObjectCookie()
	if err != nil {
		return nil, err
	}
	u, err := fr.ServiceUuid()
	if err != nil {
		return nil, err
	}
	info, err := fr.ServiceInfo()
	if err != nil {
		return nil, err
	}
	return &CreateService2{Serial: ident.Serial(serial), Object: obj, Uuid: u, Info: info}, nil
}

type CreateServiceResult byte

const (
	CreateServiceOk CreateServiceResult = iota
	CreateServiceDuplicateService
	CreateServiceInvalidObject
	CreateServiceForeignObject
)

type CreateServiceReply struct {
	Serial ident.Serial
	Result CreateServiceResult
	Cookie ident.ServiceCookie // valid when Result == CreateServiceOk
}

func (m *CreateServiceReply) Kind() Kind                        { return KindCreateServiceReply }
func (m *CreateServiceReply) ValueField() value.SerializedValue { return nil }
func (m *CreateServiceReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	if m.Result == CreateServiceOk {
		w.ServiceCookie(m.Cookie)
	}
	return w.Bytes()
}

func decodeCreateServiceReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &CreateServiceReply{Serial: ident.Serial(serial), Result: CreateServiceResult(tag)}
	if m.Result == CreateServiceOk {
		c, err := fr.ServiceCookie()
		if err != nil {
			return nil, err
		}
		m.Cookie = c
	}
	return m, nil
}

type DestroyService struct {
	Serial ident.Serial
	Cookie ident.ServiceCookie
}

func (m *DestroyService) Kind() Kind                        { return KindDestroyService }
func (m *DestroyService) ValueField() value.SerializedValue { return nil }
func (m *DestroyService) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Cookie)
	return w.Bytes()
}

func decodeDestroyService(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	return &DestroyService{Serial: ident.Serial(serial), Cookie: c}, nil
}

type DestroyServiceResult byte

const (
	DestroyServiceOk DestroyServiceResult = iota
	DestroyServiceInvalidService
	DestroyServiceForeignObject
)

type DestroyServiceReply struct {
	Serial ident.Serial
	Result DestroyServiceResult
}

func (m *DestroyServiceReply) Kind() Kind                        { return KindDestroyServiceReply }
func (m *DestroyServiceReply) ValueField() value.SerializedValue { return nil }
func (m *DestroyServiceReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	return w.Bytes()
}

func decodeDestroyServiceReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	return &DestroyServiceReply{Serial: ident.Serial(serial), Result: DestroyServiceResult(tag)}, nil
}

// ServiceDestroyed notifies a subscribed connection that a service it was
// tracking (via function calls, events, or introspection) is gone.
type ServiceDestroyed struct {
	Cookie ident.ServiceCookie
}

func (m *ServiceDestroyed) Kind() Kind                        { return KindServiceDestroyed }
func (m *ServiceDestroyed) ValueField() value.SerializedValue { return nil }
func (m *ServiceDestroyed) EncodeFields() []byte {
	w := NewFieldWriter()
	w.ServiceCookie(m.Cookie)
	return w.Bytes()
}

func decodeServiceDestroyed(fr *FieldReader, val value.SerializedValue) (Message, error) {
	c, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	return &ServiceDestroyed{Cookie: c}, nil
}

type QueryServiceInfo struct {
	Serial ident.Serial
	Cookie ident.ServiceCookie
}

func (m *QueryServiceInfo) Kind() Kind                        { return KindQueryServiceInfo }
func (m *QueryServiceInfo) ValueField() value.SerializedValue { return nil }
func (m *QueryServiceInfo) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.ServiceCookie(m.Cookie)
	return w.Bytes()
}

func decodeQueryServiceInfo(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	c, err := fr.ServiceCookie()
	if err != nil {
		return nil, err
	}
	return &QueryServiceInfo{Serial: ident.Serial(serial), Cookie: c}, nil
}

type QueryServiceInfoResult byte

const (
	QueryServiceInfoOk QueryServiceInfoResult = iota
	QueryServiceInfoInvalidService
)

type QueryServiceInfoReply struct {
	Serial ident.Serial
	Result QueryServiceInfoResult
	Info   ServiceInfo // valid when Result == QueryServiceInfoOk
}

func (m *QueryServiceInfoReply) Kind() Kind                        { return KindQueryServiceInfoReply }
func (m *QueryServiceInfoReply) ValueField() value.SerializedValue { return nil }
func (m *QueryServiceInfoReply) EncodeFields() []byte {
	w := NewFieldWriter()
	w.U32(uint32(m.Serial))
	w.U8(byte(m.Result))
	if m.Result == QueryServiceInfoOk {
		w.ServiceInfo(m.Info)
	}
	return w.Bytes()
}

func decodeQueryServiceInfoReply(fr *FieldReader, val value.SerializedValue) (Message, error) {
	serial, err := fr.U32()
	if err != nil {
		return nil, err
	}
	tag, err := fr.U8()
	if err != nil {
		return nil, err
	}
	m := &QueryServiceInfoReply{Serial: ident.Serial(serial), Result: QueryServiceInfoResult(tag)}
	if m.Result == QueryServiceInfoOk {
		info, err := fr.ServiceInfo()
		if err != nil {
			return nil, err
		}
		m.Info = info
	}
	return m, nil
}

func init() {
	register(KindCreateService2, decodeCreateService2)
	register(KindCreateServiceReply, decodeCreateServiceReply)
	register(KindDestroyService, decodeDestroyService)
	register(KindDestroyServiceReply, decodeDestroyServiceReply)
	register(KindServiceDestroyed, decodeServiceDestroyed)
	register(KindQueryServiceInfo, decodeQueryServiceInfo)
	register(KindQueryServiceInfoReply, decodeQueryServiceInfoReply)
}
