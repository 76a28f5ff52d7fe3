package types

import "context"

// Request is the payload handed to a mounted export
type Request struct {
	ExportID string                 `json:"export_id"`
	Params   map[string]interface{} `json:"params"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// Response is what a mounted export returns
type Response struct {
	Data     interface{}       `json:"data,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Invoker is the only contract the core requires from agent logic.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// InvokerFunc adapts an ordinary function to Invoker
type InvokerFunc func(ctx context.Context, req Request) (Response, error)

// Invoke calls f(ctx, req)
func (f InvokerFunc) Invoke(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// InvokeRequest is the HTTP body for invoking an export
type InvokeRequest struct {
	Params   map[string]interface{} `json:"params"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// MountRequest is the HTTP body for mounting an artifact from disk
type MountRequest struct {
	Path string `json:"path" binding:"required"`
	Hash string `json:"hash,omitempty"`
}
