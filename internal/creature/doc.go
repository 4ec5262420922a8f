// Package creature defines the minimal view of host entities the registry
// works with.
//
// Host adapters translate their own entity classes into Creature values at the
// boundary, so nothing downstream depends on a host class hierarchy. A
// Creature carries only the category, the host long id, the sanitized type,
// and the sprite sub-type flags needed to pick a skin list.
//
// # Identity
//
// Horses and pets expose a single mutable integer field that the registry uses
// directly as their short id, so for those categories the long id and the
// short id coincide. Farm animals expose a stable, large host id that cannot be
// changed; their short id is allocated separately and tracked by the registry.
//
// # Sentinels
//
// Two long id values are reserved for transient, not-yet-adopted entities: the
// stray pet and the wild horse. They are skinned but never registered or
// persisted.
package creature
