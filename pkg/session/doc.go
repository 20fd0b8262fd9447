/*
Package session serializes access to player sessions.

A Manager wraps a ports.SessionStore with per-session in-process mutexes and,
optionally, a distributed lock so that concurrent turns for the same session
are applied one after another across replicas.
*/
package session
