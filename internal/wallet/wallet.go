// Package wallet выпускает отображаемые адреса кошельков для обмена.
// Адреса используются исключительно обвязкой для показа; координатор их
// не читает и не хранит.
package wallet

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	erc20Alphabet = "0123456789abcdef"
	trc20Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	erc20BodyLen = 40
	trc20BodyLen = 33
)

// Pair содержит пару адресов для приёма USDT.
type Pair struct {
	ERC20 string `json:"erc20_address"`
	TRC20 string `json:"trc20_address"`
}

// Issuer выпускает пары адресов кошельков.
type Issuer struct{}

// NewIssuer создаёт эмитент адресов.
func NewIssuer() *Issuer {
	return &Issuer{}
}

// Issue выпускает одну пару адресов ERC20/TRC20.
func (i *Issuer) Issue() (Pair, error) {
	erc20, err := randomString(erc20Alphabet, erc20BodyLen)
	if err != nil {
		return Pair{}, err
	}
	trc20, err := randomString(trc20Alphabet, trc20BodyLen)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		ERC20: "0x" + erc20,
		TRC20: "T" + trc20,
	}, nil
}

// IssueSet выпускает n пар адресов.
func (i *Issuer) IssueSet(n int) ([]Pair, error) {
	pairs := make([]Pair, 0, n)
	for range n {
		p, err := i.Issue()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func randomString(alphabet string, length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("random address: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
