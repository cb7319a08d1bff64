// Package api holds the request and response messages of the splitledger.v1
// RPC services. Messages travel as JSON; field names follow protobuf JSON
// naming (lowerCamelCase) so browser clients can use the Connect protocol directly.
package api
