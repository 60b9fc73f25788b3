// Package storepool bounds how many named quad stores are open at once,
// leasing them to callers and evicting the least recently used idle store
// when the pool is full.
package storepool
