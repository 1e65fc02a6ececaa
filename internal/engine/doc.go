// Package engine decides whether a routine is visible at a given moment.
//
// A routine's conditions form a two-level boolean tree: each enabled,
// routine-controlling condition is a Gate that folds its checks with AND or
// OR, and the routine itself is an AND over those gates. A live manual
// override can force the result to visible but never to hidden.
//
// Malformed checks and references to deleted tasks, routines or goals fail
// closed: the clause is false, a diagnostic is attached to the trace and
// evaluation continues. I/O failures from the state provider are returned
// to the caller as *errors.StateProviderError.
package engine
