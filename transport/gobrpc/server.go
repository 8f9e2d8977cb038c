package gobrpc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server dispatches decoded Requests to registered services. It has no
// opinion about which of several servers should handle a call; that
// selection, if any, happens above this package.
type Server struct {
	serviceMap sync.Map
}

func NewServer() *Server {
	return &Server{}
}

func (server *Server) Accept(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			logger.Error("accept error", zap.Error(err))
			return
		}
		go server.ServeConn(conn)
	}
}

func (server *Server) Register(rcvr any) error {
	s, err := newService(rcvr)
	if err != nil {
		return err
	}
	if _, dup := server.serviceMap.LoadOrStore(s.name, s); dup {
		return errors.New("gobrpc: service already defined: " + s.name)
	}
	return nil
}

func (server *Server) RegisterName(name string, rcvr any) error {
	s, err := newService(rcvr)
	if err != nil {
		return err
	}
	if _, dup := server.serviceMap.LoadOrStore(name, s); dup {
		return errors.New("gobrpc: service already defined: " + name)
	}
	return nil
}

func (server *Server) findService(serviceMethod string) (svc *service, mtype *methodType, err error) {
	names := strings.Split(serviceMethod, ".")
	if len(names) != 2 {
		err = errors.New("gobrpc: illegal service method format: " + serviceMethod)
		return
	}

	serviceName, methodName := names[0], names[1]
	val, ok := server.serviceMap.Load(serviceName)
	if !ok {
		err = errors.New("gobrpc: unknown service: " + serviceName)
		return
	}

	svc = val.(*service)
	mtype, ok = svc.method[methodName]
	if !ok {
		err = errors.New("gobrpc: unknown method: " + serviceMethod)
		return
	}
	return
}

func (server *Server) ServeConn(conn io.ReadWriteCloser) {
	server.ServeCodec(NewServerCodec(conn))
}

var invalidRequest = struct{}{}

func (server *Server) ServeCodec(codec ServerCodec) {
	sending := new(sync.Mutex)
	wg := new(sync.WaitGroup)

	for {
		req, err := server.readRequest(codec)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			logger.Warn("cannot decode request", zap.Error(err))
			if req != nil {
				resp := &Response{ServiceMethod: req.ServiceMethod, Seq: req.Seq, Error: err.Error()}
				server.sendResponse(codec, resp, invalidRequest, sending)
			}
			continue
		}
		wg.Add(1)
		go server.handleRequest(codec, req, sending, wg)
	}
	wg.Wait()
	_ = codec.Close()
}

func (server *Server) handleCallError(codec ServerCodec, req *Request, sending *sync.Mutex, err error) {
	resp := &Response{ServiceMethod: req.ServiceMethod, Seq: req.Seq}

	if err != nil {
		resp.Error = err.Error()
		server.sendResponse(codec, resp, invalidRequest, sending)
		return
	}
	server.sendResponse(codec, resp, req.replyv.Interface(), sending)
}

func (server *Server) sendResponse(codec ServerCodec, resp *Response, body any, sending *sync.Mutex) {
	sending.Lock()
	defer sending.Unlock()

	if err := codec.WriteResponse(resp, body); err != nil {
		logger.Warn("send response failed", zap.Error(err))
	}
}

func (server *Server) readRequest(codec ServerCodec) (req *Request, err error) {
	req = new(Request)
	err = codec.ReadRequestHeader(req)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return
		}
		_ = codec.ReadRequestBody(nil)
		return
	}

	req.service, req.mtype, err = server.findService(req.ServiceMethod)
	if err != nil {
		_ = codec.ReadRequestBody(nil)
		return
	}

	req.argv = req.mtype.newArgv()
	req.replyv = req.mtype.newReplyv()

	argvi := req.argv.Interface()
	if req.argv.Type().Kind() != reflect.Ptr {
		argvi = req.argv.Addr().Interface()
	}

	err = codec.ReadRequestBody(argvi)
	return
}

func (server *Server) handleRequest(codec ServerCodec, req *Request, sending *sync.Mutex, wg *sync.WaitGroup) {
	defer wg.Done()

	if req.Timeout == 0 {
		err := req.service.call(req.mtype, req.argv, req.replyv)
		server.handleCallError(codec, req, sending, err)
		return
	}

	result := make(chan error, 1)
	go func() {
		result <- req.service.call(req.mtype, req.argv, req.replyv)
	}()

	select {
	case <-time.After(req.Timeout):
		server.handleCallError(codec, req, sending,
			fmt.Errorf("gobrpc: request handling exceeded %s", req.Timeout))
	case err := <-result:
		server.handleCallError(codec, req, sending, err)
	}
}
