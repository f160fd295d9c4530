// Package server hosts the optional Fiber status service started with -serve
// and the shared upstream HTTP client. NewApp wires recover, request-id and
// access-log middleware; the routes subpackage attaches the read-mostly
// library and cache endpoints. Keep exports narrow and accept explicit
// dependencies so tests can build the app without a real network.
package server
