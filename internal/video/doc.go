// Package video captures camera frames at a low fixed rate and retains them
// in a sliding time-windowed buffer for retrieval alongside speech events.
package video
