// Package merger normalizes a parsed GraphQL selection set into a single
// merged, deduplicated execution tree of resolved fields.
//
// # Overview
//
// Merge consumes a selection list, the document's fragment table, the
// caller-supplied variable bindings with their declarations, the operation's
// directives, and the type registry. It produces a synthetic root
// ResolvedField whose SubFields is the fully merged top-level field list. The
// tree carries everything a downstream resolution layer needs: substituted
// arguments, resolved directives, and the set of concrete type names each
// field applies to when its parent resolves polymorphically.
//
// # Merge model
//
// Each recursion frame covers one selection list under one type in context.
// The frame keeps an ordered buffer of merged fields plus an index keyed by
// (response key, originating type-condition name). Repeated occurrences of a
// key are combined in place: subfield lists are concatenated and the
// target/applicable type sets are unioned. Output order is first-occurrence
// order of distinct response keys.
//
// Fragment spreads and typed inline fragments recurse with the possible
// subtype matching their type condition (falling back to the scope's own type
// for conditions outside the current hierarchy); their contributed fields are
// stamped with TargetTypes = {condition} and ApplicableTypes = the subtype
// closure of the condition, unless a nested fragment assigned ApplicableTypes
// already; the first assignment is never replaced. Inline fragments without
// a type condition are transparent grouping: their fields are spliced into
// the scope without passing through the index.
//
// Subfield concatenation is shallow. When two merge partners both carry
// subfields, the combined list may repeat response keys; those are
// reconciled only when that field's own subfields are merged one level down,
// not retroactively.
//
// # Degradation policy
//
// The merger assumes a previously validated query and never reports
// structural errors: unknown fragment names contribute nothing, unknown field
// names stay in the tree typed as an opaque String, variables with neither a
// binding nor a default drop their argument, and a malformed @skip/@include
// `if` argument falls back to the directive's default behavior. The one
// exception is a cyclic fragment graph, which fails fast with
// ErrFragmentCycle.
//
// A Merge call is synchronous and allocates only the output tree plus
// per-frame bookkeeping. Concurrent calls are independent; the registry is
// only read.
package merger
