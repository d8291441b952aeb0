// Package wire provides the generic document tree that graph and value
// envelopes are encoded into, plus RFC 8785 canonical JSON and
// domain-separated content hashing over it.
//
// wire imports nothing internal. Constraints on the tree:
//   - no floats anywhere; numbers are int64
//   - null is accepted when decoding but never produced by canonical encoding
//   - object keys are ordered by UTF-16 code units (RFC 8785), not UTF-8 bytes
package wire
