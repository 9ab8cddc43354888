// Package storage defines the ItemStore contract shared by the inventory
// storage adapters (memory, postgres, redis) together with the sentinel
// errors they return.
//
// Stores are deliberately unscoped: they look records up by ID only and
// leave the ownership decision to the inventory service, which needs to
// tell a missing record apart from one owned by someone else.
package storage
