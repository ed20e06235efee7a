// Package httpapi exposes the allocation lifecycle manager and the consistency guard over HTTP/JSON.
//
// Error responses have the body {"error": "<message>"}. The status is derived from allocation.KindOf:
// not found maps to 404, conflicts to 409, invalid input and invalid state to 400, and everything else
// to 500 with a generic message. The cause of a 500 is logged, never returned to the client.
package httpapi
