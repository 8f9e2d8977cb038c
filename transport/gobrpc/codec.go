package gobrpc

import (
	"bufio"
	"encoding/gob"
	"io"

	"go.uber.org/zap"
)

// ClientCodec is the client-side half of the wire protocol.
type ClientCodec interface {
	WriteRequest(*Request, any) error
	ReadResponseHeader(*Response) error
	ReadResponseBody(any) error
	Close() error
}

// ServerCodec is the server-side half of the wire protocol.
type ServerCodec interface {
	ReadRequestHeader(*Request) error
	ReadRequestBody(any) error
	WriteResponse(*Response, any) error
	// Close can be called multiple times and must be idempotent.
	Close() error
}

type gobCodec struct {
	conn io.ReadWriteCloser
	buf  *bufio.Writer
	dec  *gob.Decoder
	enc  *gob.Encoder
}

var (
	_ ClientCodec = (*gobCodec)(nil)
	_ ServerCodec = (*gobCodec)(nil)
)

func newGobCodec(conn io.ReadWriteCloser) *gobCodec {
	buf := bufio.NewWriter(conn)
	return &gobCodec{
		conn: conn,
		buf:  buf,
		dec:  gob.NewDecoder(conn),
		enc:  gob.NewEncoder(buf),
	}
}

// NewClientCodec wraps conn for client-side use.
func NewClientCodec(conn io.ReadWriteCloser) ClientCodec { return newGobCodec(conn) }

// NewServerCodec wraps conn for server-side use.
func NewServerCodec(conn io.ReadWriteCloser) ServerCodec { return newGobCodec(conn) }

func (c *gobCodec) ReadRequestHeader(req *Request) error {
	err := c.dec.Decode(req)
	if err != nil {
		logger.Warn("gobrpc: read request header", zap.Error(err))
	}
	return err
}

func (c *gobCodec) ReadRequestBody(body any) error {
	err := c.dec.Decode(body)
	if err != nil {
		logger.Warn("gobrpc: read request body", zap.Error(err))
	}
	return err
}

func (c *gobCodec) ReadResponseHeader(resp *Response) error {
	err := c.dec.Decode(resp)
	if err != nil {
		logger.Debug("gobrpc: read response header", zap.Error(err))
	}
	return err
}

func (c *gobCodec) ReadResponseBody(body any) error {
	err := c.dec.Decode(body)
	if err != nil {
		logger.Warn("gobrpc: read response body", zap.Error(err))
	}
	return err
}

func (c *gobCodec) WriteRequest(header *Request, body any) (err error) {
	defer func() {
		_ = c.buf.Flush()
		if err != nil {
			_ = c.Close()
		}
	}()
	if err = c.enc.Encode(header); err != nil {
		logger.Warn("gobrpc: encode request header", zap.Error(err))
		return err
	}
	if err = c.enc.Encode(body); err != nil {
		logger.Warn("gobrpc: encode request body", zap.Error(err))
		return err
	}
	return nil
}

func (c *gobCodec) WriteResponse(header *Response, body any) (err error) {
	defer func() {
		_ = c.buf.Flush()
		if err != nil {
			_ = c.Close()
		}
	}()
	if err = c.enc.Encode(header); err != nil {
		logger.Warn("gobrpc: encode response header", zap.Error(err))
		return err
	}
	if err = c.enc.Encode(body); err != nil {
		logger.Warn("gobrpc: encode response body", zap.Error(err))
		return err
	}
	return nil
}

func (c *gobCodec) Close() error {
	return c.conn.Close()
}
