// Package record defines the fixed binary telemetry schemas and the rules for
// turning a candidate byte window into a trusted record.
//
// Two schemas exist, both big-endian with a trailing one-byte checksum that
// equals the mod-256 sum of every preceding byte:
//
//	Climate (15 bytes): timestamp i64 µs | temperature f32 | pressure i16 | checksum u8
//	Motion  (21 bytes): timestamp i64 µs | x i32 | y i32 | z i32          | checksum u8
//
// Decoding is pure and never fails once enough bytes are present. Trust is
// decided separately by a Validator, which checks the checksum, the timestamp
// range and the schema's physical bounds, in that order:
//
//	v := record.NewValidator(record.Climate)
//	res := v.Validate(window)
//	switch res.Verdict {
//	case record.Accepted:
//	    msg := record.NewMessage("5123", res.Record)
//	case record.Rejected:
//	    // res.Reason says why; advance one byte and try again
//	case record.Insufficient:
//	    // wait for more bytes
//	}
package record
