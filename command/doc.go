// Package command is the hardened administrative surface of the engine: a
// static verb table over whitespace-tokenized input, with caps on command
// length, batch session size and ingest payloads.
package command
