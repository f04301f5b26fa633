// Package protocol owns the AMQP 0-9-1 wire contract and parsing primitives.
//
// Ownership boundary:
// - field: typed field values and table codec
// - frame: protocol header and frame decoding per connection side
// - spec: class and method identifiers
// - schema: method argument and content property layouts
package protocol
