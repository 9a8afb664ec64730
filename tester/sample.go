package tester

import (
	"fmt"
	"time"
)

// SampleMessage returns a small patient record useful for trying out a
// channel.
func SampleMessage(now time.Time) string {
	return fmt.Sprintf(`{
  "patient_id": "123456",
  "name": "John Doe",
  "age": 30,
  "diagnosis": "Hypertension",
  "timestamp": %q
}`, now.UTC().Format("2006-01-02T15:04:05.000Z"))
}
