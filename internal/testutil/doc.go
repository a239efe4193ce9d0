// Package testutil contains helper builders used across tests to reduce
// boilerplate when preparing blackboards with state and call history. They
// are not intended for production usage.
package testutil
