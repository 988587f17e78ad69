package domain

// TokenPackage Model
// Purchasable token bundles live in the database so admin edits survive
// restarts instead of mutating process-global state.
type TokenPackage struct {
	Name   string `gorm:"primaryKey" json:"-"`    // Package name: basic, standard, premium
	Amount int    `gorm:"not null" json:"amount"` // Price in major currency units
	Tokens int    `gorm:"not null" json:"tokens"` // Tokens granted on purchase
}
