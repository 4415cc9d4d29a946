// Package headerrules applies an ordered list of header operations to the
// header set of one direction of an exchange.
//
// Adds always append, so duplicates are kept. Removes drop every occurrence.
// Rewrites touch the first occurrence only. A rule whose target or source is
// absent does nothing.
package headerrules

// Apply runs rules against headers in order and returns how many of them
// changed the header set.
func Apply(headers Map, rules []Rule, ctx Context) int {
	changed := 0
	for _, rule := range rules {
		if rule.apply(headers, ctx) {
			changed++
		}
	}
	return changed
}
