package tokens

import (
	"context"

	"github.com/dmitrijs2005/carpool/internal/client/models"
)

type Repository interface {
	Load(ctx context.Context) (models.Tokens, error)
	Save(ctx context.Context, t models.Tokens) error
	Clear(ctx context.Context) error
}

// Sealer encrypts values at rest.
type Sealer interface {
	Seal(plaintext []byte) (ciphertext, nonce []byte, err error)
	Open(ciphertext, nonce []byte) ([]byte, error)
}
