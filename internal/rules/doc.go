// Package rules holds the ordered matching units applied to command output.
//
// A Rule is built from a Definition (the rule-file representation) and
// compiled once. Matching runs a chain of prefilters, normally just the
// rule's short pattern, before the full pattern. A prefilter miss ends the
// evaluation without touching the full pattern or its counters, so a cheap
// short pattern can reject most lines of a busy stream.
//
// Patterns use the .NET regular expression dialect (github.com/dlclark/regexp2)
// so rule files keep their meaning across implementations.
//
// Every stage records hit and miss counts with cumulative durations. The
// counters are shared by both output streams and are safe for concurrent use.
package rules
