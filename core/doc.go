// Package core defines the shared conversation primitives used across
// CertPilot: role-tagged messages, immutable conversation state for the
// support workflow, routing labels and identifier helpers. Histories are
// value snapshots; every helper that "modifies" a history or state returns a
// fresh copy so steps never observe each other's writes through aliasing.
package core
