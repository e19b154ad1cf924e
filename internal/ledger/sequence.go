package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	RecordPrefix = "W"
	LogPrefix    = "H"
	PersonPrefix = "P"
)

// NextRecordID returns W + (max numeric suffix over W<digits> ids) + 1,
// zero padded to four digits.
func NextRecordID(ids []string) string {
	return nextFrom(RecordPrefix, ids)
}

// NextLogID is NextRecordID for the H prefixed audit ids.
func NextLogID(ids []string) string {
	return nextFrom(LogPrefix, ids)
}

func nextFrom(prefix string, ids []string) string {
	seq := NewSequence(prefix)
	for _, id := range ids {
		seq.Observe(id)
	}
	return seq.Next()
}

// Sequence is the incremental form of NextRecordID/NextLogID. It is a plain
// value; the store copies it into a transaction and writes it back on commit.
type Sequence struct {
	prefix string
	max    int
}

// NewSequence returns an empty counter for prefix.
func NewSequence(prefix string) Sequence {
	return Sequence{prefix: prefix}
}

// Observe raises the counter to id's numeric suffix if id carries the prefix.
func (s *Sequence) Observe(id string) {
	if n, ok := parseSuffix(s.prefix, id); ok && n > s.max {
		s.max = n
	}
}

// Next advances the counter and formats the new id.
func (s *Sequence) Next() string {
	s.max++
	return format(s.prefix, s.max)
}

// Peek formats the id Next would return without advancing.
func (s Sequence) Peek() string {
	return format(s.prefix, s.max+1)
}

// Max returns the highest suffix observed or issued.
func (s Sequence) Max() int {
	return s.max
}

func format(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

func parseSuffix(prefix, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NewPersonID returns P followed by eight uppercase hex characters taken
// from a random UUID.
func NewPersonID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return PersonPrefix + strings.ToUpper(hex[:8])
}
