// Package txid generates the transaction ids stamped on every triple of an
// ingestion run. Ids are ULIDs: 10 characters of millisecond timestamp followed
// by 16 characters of randomness, both Crockford base-32.
package txid

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// Length is the fixed length of a generated id.
const Length = 26

// Generator produces ids from a clock and an entropy source.
type Generator struct {
	Now     func() time.Time
	Entropy io.Reader
}

var defaultGenerator = &Generator{}

// New returns an id built from the current time and crypto/rand.
func New() string {
	return defaultGenerator.New()
}

// New returns an id for the generator's current clock value. Ids taken at
// strictly increasing milliseconds sort in generation order; ids sharing a
// millisecond are not ordered.
func (g *Generator) New() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	entropy := g.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}

	return ulid.MustNew(ulid.Timestamp(now()), entropy).String()
}

// Time extracts the millisecond timestamp encoded in an id.
func Time(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}

	return ulid.Time(parsed.Time()), nil
}
