// Package nats mirrors every persisted line onto a NATS subject.
//
// A Publisher implements file.Mirror. Lines from source "5123" go to
// "<prefix>.5123" (prefix defaults to "sensors") either as the raw line text
// or, with Format "json", as an object carrying source, schema, timestamp and
// line.
//
// Mirroring never blocks persistence. Publish errors are returned to the sink
// for counting; the publisher logs the first failure of a streak at Warn and
// the recovery at Info.
package nats
