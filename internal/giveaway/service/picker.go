package service

import (
	"crypto/rand"
	"errors"
	"math/big"

	giveawaydomain "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/domain"
)

// cryptoPicker draws uniformly from crypto/rand. There is no seed to fix, so
// neither operators nor callers can steer the outcome.
type cryptoPicker struct{}

func NewPicker() giveawaydomain.Picker {
	return cryptoPicker{}
}

func (cryptoPicker) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("empty_population")
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(idx.Int64()), nil
}
