// Package serialize flattens arbitrary object graphs, including shared
// ownership, cycles, and externally-named pointers, into the binary format
// defined by the wire package, and materializes such blobs back into
// object graphs.
//
// # Encoding
//
// [ToBinary] walks the graph from the root. Every pointer edge is a
// reference: the first visit to an address assigns it the next instance
// index, allocates that instance a private buffer, and hands the instance's
// emission to the worker pool; later visits emit only the index. Addresses
// listed in the caller's external-name table are never given an instance:
// they are emitted as named outside-references and resolved again at decode
// time from a matching table. Registration happens before recursion, so
// self-loops and cycles terminate.
//
// # Decoding
//
// [FromBinary] verifies the header, parses each instance frame into a data
// node tree in parallel, and then re-links the forest into objects:
// inside-references resolve by instance index, outside-references through
// the caller's name table. Instances are allocated before their contents
// are filled, so cyclic graphs rebuild with the same topology, and two
// fields that shared an address before encoding share one after.
//
// # User types
//
// A type participates one of three ways, checked in this order:
//
//   - intrusively, by implementing [Serializable];
//   - extrusively, through an adapter registered with [RegisterAdapter];
//   - structurally, by plain reflection over exported fields.
//
// All three produce a STRUCT value keyed by field name; key order is never
// semantic. Inside Serialize, stream each field with [Serializer.Field];
// inside Deserialize, read them back with [Deserializer.Field] in any
// order.
package serialize
