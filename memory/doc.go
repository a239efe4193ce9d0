// Package memory contains core.ChatMemoryStore implementations: a process
// local InMemoryStore, a SQLiteStore backed by modernc.org/sqlite and a
// RedisStore backed by go-redis. Depend on core.ChatMemoryStore in your code
// and select an implementation at wiring time.
//
// Every store applies the same message window: when MaxMessages is positive,
// only the newest MaxMessages entries of a session are kept, except that a
// leading system message survives trimming.
package memory
