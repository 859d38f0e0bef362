package domain

import (
	"context"
	"fmt"
)

// Chunker splits a document into ordered, bounded-size segments.
type Chunker interface {
	Chunk(document Document) ([]Segment, error)
}

// Inferencer is the answer-producing collaborator: prompt in, text out.
// Calls are synchronous; ordering of calls is the caller's responsibility.
type Inferencer interface {
	Infer(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// Storage is the remote file collaborator used to fetch inputs and publish outputs.
type Storage interface {
	List(ctx context.Context, folder string) ([]RemoteFile, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, localPath, folder string) error
}

// Extractor turns a local file into plain text.
type Extractor interface {
	ExtractText(path string) (string, error)
}

// AuditRecorder appends one event line to the run's audit log.
type AuditRecorder interface {
	Record(event string, fields ...Field) error
}

// Named is implemented by backends that can identify themselves in audit events.
type Named interface {
	Name() string
}

// NameOf returns v's Name, or its dynamic type when v is not Named.
func NameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}
