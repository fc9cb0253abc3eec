// Package msgs defines the messages fanned out to remote consumers.
//
// Every message travels inside a Typed envelope carrying its type ID,
// so a consumer can decode a packet without knowing the topic or
// connection it arrived on.
package msgs
