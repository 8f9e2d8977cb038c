package gobrpc

import (
	"go/ast"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

type methodType struct {
	method    reflect.Method
	ArgType   reflect.Type
	ReplyType reflect.Type
	numCalls  uint64
}

func (m *methodType) NumCalls() uint64 {
	return atomic.LoadUint64(&m.numCalls)
}

func (m *methodType) newArgv() reflect.Value {
	if m.ArgType.Kind() == reflect.Ptr {
		return reflect.New(m.ArgType.Elem())
	}
	return reflect.New(m.ArgType).Elem()
}

func (m *methodType) newReplyv() reflect.Value {
	replyv := reflect.New(m.ReplyType.Elem())

	switch m.ReplyType.Elem().Kind() {
	case reflect.Map:
		replyv.Elem().Set(reflect.MakeMap(m.ReplyType.Elem()))
	case reflect.Slice:
		replyv.Elem().Set(reflect.MakeSlice(m.ReplyType.Elem(), 0, 0))
	}

	return replyv
}

// service is a registered business object: the receiver end of one or
// more "Service.Method" names a Request can target.
type service struct {
	name   string
	typ    reflect.Type
	rcvr   reflect.Value
	method map[string]*methodType
}

func newService(rcvr any) (*service, error) {
	typ := reflect.TypeOf(rcvr)
	val := reflect.ValueOf(rcvr)
	name := reflect.Indirect(val).Type().Name()

	if !ast.IsExported(name) {
		return nil, &InvalidServiceError{Name: name}
	}

	s := &service{
		name:   name,
		typ:    typ,
		rcvr:   val,
		method: make(map[string]*methodType),
	}
	s.registerMethods()
	return s, nil
}

// InvalidServiceError means a registered receiver's type name is not
// exported, so no method on it can ever be dispatched to.
type InvalidServiceError struct{ Name string }

func (e *InvalidServiceError) Error() string {
	return "gobrpc: type " + e.Name + " is not exported"
}

func (s *service) registerMethods() {
	for i := 0; i < s.typ.NumMethod(); i++ {
		method := s.typ.Method(i)
		if !method.IsExported() {
			continue
		}

		// func (t *T) MethodName(argType T1, replyType *T2) error
		if method.Type.NumIn() != 3 || method.Type.NumOut() != 1 {
			continue
		}
		if method.Type.Out(0) != reflect.TypeOf((*error)(nil)).Elem() {
			continue
		}

		argType, replyType := method.Type.In(1), method.Type.In(2)
		if !isExportedOrBuiltinType(argType) || !isExportedOrBuiltinType(replyType) {
			continue
		}

		s.method[method.Name] = &methodType{
			method:    method,
			ArgType:   argType,
			ReplyType: replyType,
		}
		logger.Debug("registered method", zap.String("service", s.name), zap.String("method", method.Name))
	}
}

func (s *service) call(m *methodType, argv, replyv reflect.Value) error {
	atomic.AddUint64(&m.numCalls, 1)

	out := m.method.Func.Call([]reflect.Value{s.rcvr, argv, replyv})
	if errInter := out[0].Interface(); errInter != nil {
		return errInter.(error)
	}
	return nil
}

func isExportedOrBuiltinType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return ast.IsExported(t.Name()) || t.PkgPath() == ""
}
