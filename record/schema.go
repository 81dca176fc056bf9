package record

import (
	"fmt"
	"math"

	"github.com/c360/sensorstreams/errors"
)

const (
	timestampSize = 8
	checksumSize  = 1
)

// Schema describes one fixed-size record layout.
// The set of schemas is closed: Climate and Motion.
type Schema struct {
	// Name identifies the schema in configuration and metrics.
	Name string
	// Size is the total encoded length including the checksum byte.
	Size int

	decode func(payload []byte) Fields
	encode func(payload []byte, f Fields) error
	check  func(f Fields) error
}

// Fields is the schema-specific part of a record.
type Fields interface {
	// String renders the fields as they appear in a persisted line.
	String() string
}

// ClimateFields carries Climate measurements.
type ClimateFields struct {
	Temperature float32
	Pressure    int16
}

func (f ClimateFields) String() string {
	return fmt.Sprintf("Temp: %.2f | Pressure: %d", f.Temperature, f.Pressure)
}

// MotionFields carries Motion axis readings.
type MotionFields struct {
	X int32
	Y int32
	Z int32
}

func (f MotionFields) String() string {
	return fmt.Sprintf("X: %d | Y: %d | Z: %d", f.X, f.Y, f.Z)
}

// Record is a decoded telemetry record. Timestamp is microseconds since the Unix epoch.
type Record struct {
	Schema    string
	Timestamp int64
	Fields    Fields
}

// Climate is the 15-byte temperature/pressure schema.
var Climate = &Schema{
	Name: "climate",
	Size: timestampSize + 4 + 2 + checksumSize,
	decode: func(p []byte) Fields {
		return ClimateFields{
			Temperature: Float32FromBig(p[0:4]),
			Pressure:    int16FromBig(p[4:6]),
		}
	},
	encode: func(p []byte, f Fields) error {
		c, ok := f.(ClimateFields)
		if !ok {
			return fmt.Errorf("climate: unexpected fields %T: %w", f, errors.ErrInvalidData)
		}
		PutFloat32Big(p[0:4], c.Temperature)
		putInt16Big(p[4:6], c.Pressure)
		return nil
	},
	check: checkClimate,
}

// Motion is the 21-byte three-axis schema.
var Motion = &Schema{
	Name: "motion",
	Size: timestampSize + 3*4 + checksumSize,
	decode: func(p []byte) Fields {
		return MotionFields{
			X: int32FromBig(p[0:4]),
			Y: int32FromBig(p[4:8]),
			Z: int32FromBig(p[8:12]),
		}
	},
	encode: func(p []byte, f Fields) error {
		m, ok := f.(MotionFields)
		if !ok {
			return fmt.Errorf("motion: unexpected fields %T: %w", f, errors.ErrInvalidData)
		}
		putInt32Big(p[0:4], m.X)
		putInt32Big(p[4:8], m.Y)
		putInt32Big(p[8:12], m.Z)
		return nil
	},
	// no physical bounds for motion
	check: func(Fields) error { return nil },
}

var schemas = []*Schema{Climate, Motion}

// Schemas returns every known schema.
func Schemas() []*Schema {
	out := make([]*Schema, len(schemas))
	copy(out, schemas)
	return out
}

// SchemaByName resolves a schema from its configured name.
func SchemaByName(name string) (*Schema, error) {
	for _, s := range schemas {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, errors.WrapInvalid(fmt.Errorf("unknown schema %q", name), "record", "SchemaByName", "resolve schema")
}

// Decode interprets the first Size bytes of window. It assumes len(window) >= Size
// and performs no validation.
func (s *Schema) Decode(window []byte) Record {
	w := window[:s.Size]
	return Record{
		Schema:    s.Name,
		Timestamp: int64FromBig(w[0:timestampSize]),
		Fields:    s.decode(w[timestampSize : s.Size-checksumSize]),
	}
}

// Encode produces the wire form of rec, checksum included.
func (s *Schema) Encode(rec Record) ([]byte, error) {
	buf := make([]byte, s.Size)
	putInt64Big(buf[0:timestampSize], rec.Timestamp)
	if err := s.encode(buf[timestampSize:s.Size-checksumSize], rec.Fields); err != nil {
		return nil, err
	}
	buf[s.Size-1] = Checksum(buf[:s.Size-1])
	return buf, nil
}

func (s *Schema) String() string {
	return s.Name
}

func checkClimate(f Fields) error {
	c, ok := f.(ClimateFields)
	if !ok {
		return fmt.Errorf("climate: unexpected fields %T: %w", f, ErrValueOutOfRange)
	}
	t := float64(c.Temperature)
	if math.IsNaN(t) || t <= -273 || t >= 200 {
		return fmt.Errorf("temperature %v: %w", c.Temperature, ErrValueOutOfRange)
	}
	if c.Pressure <= 0 {
		return fmt.Errorf("pressure %d: %w", c.Pressure, ErrValueOutOfRange)
	}
	return nil
}
