package usecase

import (
	"crypto/rand"
	"math/big"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// Coin draws the outcome of a wager.
type Coin interface {
	Flip() (domain.Side, error)
}

// CryptoCoin draws each outcome independently from crypto/rand; there is no
// seed to share or predict.
type CryptoCoin struct{}

func (CryptoCoin) Flip() (domain.Side, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return "", err
	}
	if n.Int64() == 1 {
		return domain.Heads, nil
	}
	return domain.Tails, nil
}
