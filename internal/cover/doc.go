// Package cover instruments JavaScript sources with statement and function
// counters, collects the hits recorded while specs run, and renders the
// result as HTML or JSON reports.
//
// Instrumentation never inserts line breaks, so every line of an
// instrumented file corresponds to the same line of its source.
package cover
