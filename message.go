package zmqbridge

// Message is a multipart payload, in wire order. A socket send of len(m)==1
// is delivered as a single-part message; len(m)==N is delivered as exactly N
// parts. Framing is always preserved round-trip; this package never merges
// or splits parts.
type Message [][]byte

// SocketID is the opaque identifier the channel loop assigns a socket at
// registration time. It is unique within a single [Context] and is the key
// shared between the registration table (owned by the channel loop) and the
// socket table (owned by the socket loop).
type SocketID string

// controlID is the reserved [SocketID] for the control PAIR socket and its
// matching entry in the registration table.
const controlID SocketID = ":control"
