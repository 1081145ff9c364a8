// Package msgs provides the KNoT protocol messages exchanged between a
// thing and its gateway.
//
// Every message is a protobuf message wrapped in a Typed envelope carrying
// its type id. Requests have even type ids and the matching response sets
// TypeIDMaskReply.
package msgs
