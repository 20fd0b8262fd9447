// Package redis provides the Redis-backed session store and distributed
// session lock.
package redis
