package domain_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mg-ledger/internal/domain"
)

func TestComputePayout(t *testing.T) {
	fee := domain.Fraction{Num: 25, Den: 1000}

	tests := []struct {
		name     string
		balance  string
		royalty  domain.Fraction
		creator  string
		owner    string
		expected domain.Payout
	}{
		{
			name:    "fee and royalty divide evenly",
			balance: "2000",
			royalty: domain.Fraction{Num: 15, Den: 100},
			creator: "creator",
			owner:   "owner",
			expected: domain.Payout{
				"marketplace": "50",
				"creator":     "300",
				"owner":       "1650",
			},
		},
		{
			name:    "thirty percent royalty",
			balance: "5000000",
			royalty: domain.Fraction{Num: 30, Den: 100},
			creator: "creator",
			owner:   "owner",
			expected: domain.Payout{
				"marketplace": "125000",
				"creator":     "1500000",
				"owner":       "3375000",
			},
		},
		{
			name:    "royalty rounds down and owner absorbs the rest",
			balance: "2000",
			royalty: domain.Fraction{Num: 1, Den: 6},
			creator: "creator",
			owner:   "owner",
			expected: domain.Payout{
				"marketplace": "50",
				"creator":     "333",
				"owner":       "1617",
			},
		},
		{
			name:    "one seventh royalty",
			balance: "2000",
			royalty: domain.Fraction{Num: 1, Den: 7},
			creator: "creator",
			owner:   "owner",
			expected: domain.Payout{
				"marketplace": "50",
				"creator":     "285",
				"owner":       "1665",
			},
		},
		{
			name:    "creator selling own token gets a single entry",
			balance: "2000",
			royalty: domain.Fraction{Num: 15, Den: 100},
			creator: "creator",
			owner:   "creator",
			expected: domain.Payout{
				"marketplace": "50",
				"creator":     "1950",
			},
		},
		{
			name:    "zero royalty still pays the creator entry",
			balance: "2000",
			royalty: domain.Fraction{Num: 0, Den: 1},
			creator: "creator",
			owner:   "owner",
			expected: domain.Payout{
				"marketplace": "50",
				"creator":     "0",
				"owner":       "1950",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, err := uint256.FromDecimal(tt.balance)
			require.NoError(t, err)

			payout := domain.ComputePayout(balance, domain.SaleTerms{
				Fee:        fee,
				FeeAccount: "marketplace",
				Royalty:    tt.royalty,
				Creator:    tt.creator,
				Owner:      tt.owner,
			})
			assert.Equal(t, tt.expected, payout)
		})
	}
}

// Whatever the rounding, the shares must always add up to the sale price.
func TestComputePayoutConservesBalance(t *testing.T) {
	balances := []string{"1", "2000", "7777", "5000000000000000000000000"}
	royalties := []domain.Fraction{
		{Num: 0, Den: 1},
		{Num: 1, Den: 7},
		{Num: 1, Den: 6},
		{Num: 30, Den: 100},
		{Num: 975, Den: 1000},
	}

	for _, b := range balances {
		for _, royalty := range royalties {
			balance, err := uint256.FromDecimal(b)
			require.NoError(t, err)

			payout := domain.ComputePayout(balance, domain.SaleTerms{
				Fee:        domain.Fraction{Num: 25, Den: 1000},
				FeeAccount: "marketplace",
				Royalty:    royalty,
				Creator:    "creator",
				Owner:      "owner",
			})

			total := uint256.NewInt(0)
			for _, share := range payout {
				v, err := share.Parse()
				require.NoError(t, err)
				total.Add(total, v)
			}
			assert.Equal(t, balance.Dec(), total.Dec(), "balance %s royalty %s", b, royalty)
		}
	}
}
