package utils

import "github.com/google/uuid"

// UUIDGenerator hands out record ids. UUIDv7 keeps ids created on one
// device roughly in creation order.
type UUIDGenerator struct {
	newV7 func() (uuid.UUID, error)
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{newV7: uuid.NewV7}
}

// Generate returns a UUIDv7 string. If the v7 source fails (it reads the
// clock and crypto/rand) a random v4 id is returned instead.
func (g *UUIDGenerator) Generate() string {
	id, err := g.newV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
