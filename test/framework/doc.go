// Package framework provides the end-to-end harness for dops: a fake
// prediction backend that cold-starts like a sleeping host, a client for the
// status endpoints, and waiters and assertions built on top of it.
package framework
