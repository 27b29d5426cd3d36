// Package engine implements the stated expansion engine.
//
// The engine takes the template files of one package, finds the typestate
// structs and annotated methods in them, and produces one generated file per
// template.
//
// EXPANSION FLOW:
//
//  1. Parse every template (go/parser, comments included)
//  2. Scan: collect //stated:struct declarations into the registry
//  3. Rewrite each annotated method into a package-level generic function
//  4. Emit: apply text edits to each template, add the state import, gofmt
//
// Struct declarations are registered before any method is rewritten, so an
// operation may live in a different template of the same package than its
// struct.
//
// Expansion is all-or-nothing per call: the first diagnostic aborts and no
// file is produced. Warnings never abort.
//
// Expansion is deterministic: declarations are processed in source order and
// every rendering is passed through go/format.
package engine
