// Package runtime implements the run/node lifecycle state machine.
//
// A Machine owns all mutation of runtime state. Other components (engine,
// control surface, stores) observe state exclusively through its query
// operations; nothing else may flip a node status. State is sharded per run
// (the outer registry holds one lock, each run holds its own) so transitions
// in unrelated runs never contend.
//
// Per-node lifecycle: Pending → Running → {Completed, Failed}. Terminal
// states admit no further transition; an invalid transition returns
// *core.InvalidTransitionError and leaves state untouched. Nodes whose
// transitive dependencies failed are permanently ineligible and surface as
// Blocked once the run settles.
package runtime
