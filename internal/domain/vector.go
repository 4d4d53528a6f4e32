package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// EmbeddingDim is the dimensionality of every stored embedding. All providers
// configured for retrieval must produce vectors of this length.
const EmbeddingDim = 1024

// Vector maps a []float32 embedding onto a pgvector column using the
// extension's text representation ("[0.1,0.2,...]").
type Vector []float32

func (Vector) GormDataType() string {
	return fmt.Sprintf("vector(%d)", EmbeddingDim)
}

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}
	var s string
	switch t := src.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("vector: cannot scan %T", src)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		*v = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(Vector, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("vector: parse element %q: %w", p, err)
		}
		out = append(out, float32(f))
	}
	*v = out
	return nil
}
