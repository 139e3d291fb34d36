// Package engine evaluates parsed field/value queries against a
// collection's published batch versions. For each version, newest first, it
// resolves every statement's key to a per-key term trie, composes term
// postings boolean-ly, and shadows earlier versions' hits on matching
// primary key. Results are tf-idf-ranked, ties broken by ascending doc-id.
package engine
