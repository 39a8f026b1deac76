package domain

import "github.com/holiman/uint256"

// SaleTerms carries everything needed to split a sale price between the
// platform, the collectible's creator and the selling owner.
type SaleTerms struct {
	Fee        Fraction
	FeeAccount string
	Royalty    Fraction
	Creator    string
	Owner      string
}

// ComputePayout splits balance according to the sale terms.
//
// The platform fee and the creator royalty are both taken as fractions of
// the full balance, rounded down. The owner receives whatever remains, so
// the three shares always add up to the balance exactly. When the creator
// still owns the token the royalty and the remainder collapse into a single
// entry.
func ComputePayout(balance *uint256.Int, terms SaleTerms) Payout {
	fee := terms.Fee.Mult(balance)
	royalty := terms.Royalty.Mult(balance)

	remainder := new(uint256.Int).Sub(balance, fee)
	remainder.Sub(remainder, royalty)

	payout := Payout{
		terms.FeeAccount: BalanceFromInt(fee),
	}
	if terms.Creator == terms.Owner {
		payout[terms.Owner] = BalanceFromInt(new(uint256.Int).Add(royalty, remainder))
	} else {
		payout[terms.Creator] = BalanceFromInt(royalty)
		payout[terms.Owner] = BalanceFromInt(remainder)
	}
	return payout
}
