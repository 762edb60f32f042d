// Package dotpath reads and writes values inside JSON-shaped trees
// (map[string]any, []any and scalars) addressed by dotted paths such as
// "profile.tags.0".
//
// Paths are parsed once into tagged segments: a piece made only of digits is
// an index, anything else a key. The tag decides which container is created
// when Set has to build a missing intermediate level.
//
// Set and Unset are copy-on-write. They return a new root, copy only the
// containers along the path and never modify the input tree, so a previously
// observed tree can be handed to other goroutines or listeners safely.
//
// Get distinguishes an undefined location from a present nil:
//
//	v, ok := dotpath.Get(tree, dotpath.Parse("user.name"))
//	// ok == false: some segment is missing
//	// ok == true, v == nil: the value (or an ancestor) is explicitly null
package dotpath
