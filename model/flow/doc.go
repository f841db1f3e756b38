// Package flow defines the immutable flow definition walked by the
// orchestrator: an ordered list of sequential, parallel, conditional and loop
// elements referencing steps by name.
package flow
