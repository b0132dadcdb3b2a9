package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. The visualization engine treats the catalog as a
// read-only lookup; product rows are seeded by the catalog import pipeline.
type Product struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	Name       string    `db:"name"        json:"name"`
	Category   string    `db:"category"    json:"category"`
	ImageURL   string    `db:"image_url"   json:"image_url"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Currency   string    `db:"currency"    json:"currency"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}
