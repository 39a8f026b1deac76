package schema

import (
	"github.com/mintgate/mg-ledger/internal/domain"
)

// Collectible represents the collectibles table. A collectible is the
// definition a creator registers under a gate ID: metadata, a fixed supply
// and a royalty rate. Tokens are minted out of it until the supply is gone.
type Collectible struct {
	// GateID is the creator chosen identifier, unique per ledger
	GateID string `gorm:"column:gate_id;primaryKey;type:text" json:"gate_id"`
	// Creator is the account that registered the collectible and receives royalties
	Creator string `gorm:"column:creator_id;not null;index;type:text" json:"creator_id"`
	// CurrentSupply is how many copies are still claimable
	CurrentSupply uint64 `gorm:"column:current_supply;not null" json:"current_supply"`
	// Royalty is the fraction of every resale paid to the creator
	Royalty domain.Fraction `gorm:"embedded;embeddedPrefix:royalty_" json:"royalty"`
	// CreatedAt is the mint registration time in nanoseconds
	CreatedAt int64 `gorm:"column:created_at;not null" json:"created_at"`

	Metadata CollectibleMetadata `gorm:"embedded" json:"metadata"`

	// Associations
	MintedTokens []Token `gorm:"foreignKey:GateID;references:GateID" json:"-"`
}

func (Collectible) TableName() string {
	return "collectibles"
}

// CollectibleMetadata is the descriptive part of a collectible, modeled
// after the NEP-177 token metadata convention.
type CollectibleMetadata struct {
	Title         *string `gorm:"column:title;type:text" json:"title"`
	Description   *string `gorm:"column:description;type:text" json:"description"`
	Media         *string `gorm:"column:media;type:text" json:"media"`
	MediaHash     *string `gorm:"column:media_hash;type:text" json:"media_hash"`
	Copies        uint64  `gorm:"column:copies;not null" json:"copies"`
	Reference     *string `gorm:"column:reference;type:text" json:"reference"`
	ReferenceHash *string `gorm:"column:reference_hash;type:text" json:"reference_hash"`
}
