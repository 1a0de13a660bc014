// Package flow is the concurrent dataflow runtime that executes one
// template instance.
//
// A run builds a Context of single-assignment field cells, declares one
// unresolved cell per generation output, then schedules every generation
// at once. Each task suspends on Context.Get until its inputs resolve,
// dispatches to the action handler registered for its method and writes its
// outputs with Context.Put. Independent generations overlap; dependent ones
// wake up as their producers finish.
//
// The whole run is bounded by a wall-time limit and fails fast: the first
// error cancels all outstanding tasks and releases every suspended Get with
// a cancellation error. On success, Context.Dump of the non-seed cells is
// the card content.
package flow
