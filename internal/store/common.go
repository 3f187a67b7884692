// Package store persists game snapshots and brew logs in a key-value store
// under one prefix byte per keyspace.
package store

import (
	"encoding/binary"
	"errors"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrStoreClosed      = errors.New("store is closed")
)

const (
	ErrFailedBatchCommit = "failed to commit batch: %v"
)

// Prefix constants for all store types
const (
	prefixSnapshot byte = iota + 1
	prefixBrewLog
	prefixBrewLogByDoctor
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixSnapshot:
		return "snapshot"
	case prefixBrewLog:
		return "brewLog"
	case prefixBrewLogByDoctor:
		return "brewLogByDoctor"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and the big endian parts that follow
func makeKey(prefix byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 1, n)
	key[0] = prefix
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func be64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
