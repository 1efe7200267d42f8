// Package chunk splits the record collection across size-bounded files.
//
// A collection of millions of records, or of a few enormous ones, can encode
// to more bytes than a single buffer may hold. The Writer therefore samples
// the collection, sizes chunks against the largest sampled entry, and writes
// each chunk to its own file:
//
//	<dir>/<prefix>0
//	<dir>/<prefix>1
//	...
//
// The Reader discovers chunk files by prefix, decodes each and concatenates
// their entries. No manifest is kept: the files present on disk are the
// chunk set. Every write removes all files carrying the prefix first, so a
// shrinking collection never leaves chunks of an older generation behind.
package chunk
