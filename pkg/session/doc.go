/*
Package session implements session management and persistence orchestration.

It serialises read-modify-write cycles on anchor sessions, integrating per-session
in-process mutexes with optional distributed locking and the configured store, so
several adapters (frame loop, HTTP, MCP) can drive the same session safely.
*/
package session
