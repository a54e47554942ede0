// Package types holds the shared kernel of the service: the structured error
// type and its unified error codes. Domain types live with their packages;
// only what every layer needs belongs here.
package types
