// Package state reads and writes persisted slots as typed snapshots outside of
// a live store. It is what tooling uses to inspect, seed or migrate the values
// a persistence session would hydrate.
//
//   - Store[T] loads and saves one snapshot for one Ref.
//   - CodecStore[T] backs Store[T] with a storage backend and serializer, so it
//     reads exactly the payloads sessions write.
//   - Resolver[T] layers a loaded snapshot over defaults and exposes the merge
//     through persist.Resolved, which answers "did this field come from storage
//     or from the defaults?".
//
// Data flow:
//
//	Storage -> Serializer -> CodecStore -> Resolver -> persist.NewStack(...).Merge()
//
// Meta.ETag is derived from the stored payload, which gives Mutate optimistic
// concurrency against writers that do not know about Meta at all.
package state
