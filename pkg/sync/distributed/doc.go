// Package distributed provides Redis-backed synchronization primitives for
// tasks that must coordinate across process instances.
//
// Unlike the local primitives in pkg/sync, these touch the network. Every
// Redis call is pushed through an executor.Bridge so the loop's carrier
// never blocks on I/O, and retry backoff sleeps on the loop's timer wheel.
// State changes in Redis are made atomic with Lua scripts.
//
// Leases expire: a crashed holder releases its lock or semaphore unit when
// the TTL lapses, so a stuck instance cannot wedge the whole fleet. Holders
// of long-running work should call Refresh before the TTL runs out.
package distributed
