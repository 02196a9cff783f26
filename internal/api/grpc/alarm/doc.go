// Package alarm implements the gRPC transport for the alarm service.
//
// The service is described by hand (see ServiceDesc) and its messages are
// plain Go structs carried by a JSON codec registered under the "json"
// content subtype. Clients must call with CallOption() so the server picks
// the same codec.
package alarm
