// Package store hosts named reactive state trees.
//
// A Store holds a JSON-shaped map[string]any and notifies subscribers after
// every mutation with the mutation record and the post-mutation state. States
// are never modified in place: every mutation installs a new root, so a state
// handed to a listener stays valid after later mutations.
//
// Stores are created through a Registry, which runs installed plugins against
// each new store. Persistence is one such plugin; it attaches itself to the
// store so that Store.Hydrate and Store.Persist can be triggered manually.
//
// Listener delivery is serialized per store and follows mutation order. A
// listener may mutate the store it observes; the nested mutation is delivered
// after the current one finishes.
package store
