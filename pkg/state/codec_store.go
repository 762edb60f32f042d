package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
)

// CodecStore reads and writes snapshots through a storage backend and a
// serializer, the same pair a persistence session uses. Snapshots travel as
// objects, so T is a struct or a map.
type CodecStore[T any] struct {
	storage    storage.Storage
	serializer serializer.Serializer
	decoder    *hydrate.Decoder[T]
	now        func() time.Time
}

// NewCodecStore binds a backend and serializer. A nil serializer means JSON.
func NewCodecStore[T any](backend storage.Storage, codec serializer.Serializer) *CodecStore[T] {
	if codec == nil {
		codec = serializer.JSON()
	}
	return &CodecStore[T]{
		storage:    backend,
		serializer: codec,
		decoder:    hydrate.NewDecoder[T](),
		now:        time.Now,
	}
}

func (s *CodecStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}
	raw, ok, err := s.storage.GetItem(key)
	if err != nil {
		return zero, Meta{}, false, err
	}
	if !ok || raw == "" {
		return zero, Meta{}, false, nil
	}
	value, err := s.serializer.Deserialize(raw)
	if err != nil {
		return zero, Meta{}, false, err
	}
	doc, isObject := value.(map[string]any)
	if !isObject {
		return zero, Meta{}, false, fmt.Errorf("state: %q holds %T, want an object", key, value)
	}
	snapshot, err := s.decoder.Decode(hydrate.Context{Store: ref.Store, Key: key}, doc)
	if err != nil {
		return zero, Meta{}, false, err
	}
	return snapshot, Meta{SnapshotID: key, ETag: etag(raw)}, true, nil
}

func (s *CodecStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	doc, err := hydrate.Encode(snapshot)
	if err != nil {
		return Meta{}, err
	}
	raw, err := s.serializer.Serialize(doc)
	if err != nil {
		return Meta{}, err
	}
	if err := s.storage.SetItem(key, raw); err != nil {
		return Meta{}, err
	}
	saved := cloneMeta(meta)
	saved.SnapshotID = key
	saved.ETag = etag(raw)
	saved.UpdatedAt = s.now()
	return saved, nil
}

func etag(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:8])
}
