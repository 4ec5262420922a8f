// Package session drives the creature registry from host game events.
//
// A host calls the lifecycle methods in order: OnSaveLoaded when a save
// finishes loading, Tick on every update, OnSaving and OnSaved around a
// save, and OnReturnedToTitle when the save is closed. Each load builds a
// fresh registry, so nothing carries over between saves.
//
// Day events drive the stray pet and wild horse: DayStarted may spawn them,
// the player adopts them with AdoptStray and AdoptWildHorse, and DayEnding
// removes whichever were left.
package session
