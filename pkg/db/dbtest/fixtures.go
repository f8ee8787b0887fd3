package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
)

// VariantSeed describes a variant to insert with its parent product.
type VariantSeed struct {
	ProductName   string
	Name          string
	Price         int64
	DiscountPrice *int64
	Stock         int
	WeightGrams   int
}

// SeedVariant inserts a product and one variant and returns the variant.
func SeedVariant(t testing.TB, conn *gorm.DB, seed VariantSeed) models.ProductVariant {
	t.Helper()
	if seed.ProductName == "" {
		seed.ProductName = "Kopi Gayo"
	}
	if seed.Name == "" {
		seed.Name = "250g"
	}
	product := models.Product{ID: uuid.New(), Name: seed.ProductName}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ID:          uuid.New(),
		ProductID:   product.ID,
		Name:        seed.Name,
		SKU:         "SKU-" + uuid.NewString()[:8],
		Price:       decimal.NewFromInt(seed.Price),
		Stock:       seed.Stock,
		WeightGrams: seed.WeightGrams,
	}
	if seed.DiscountPrice != nil {
		d := decimal.NewFromInt(*seed.DiscountPrice)
		variant.DiscountPrice = &d
	}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	variant.Product = &product
	return variant
}

// SeedUser inserts a user row.
func SeedUser(t testing.TB, conn *gorm.DB, staff bool) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:       id,
		Email:    "user-" + id.String()[:8] + "@example.com",
		FullName: "Budi Santoso",
		IsStaff:  staff,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// Stock reads the current stock of a variant.
func Stock(t testing.TB, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := conn.Select("id", "stock").Where("id = ?", variantID).Take(&variant).Error; err != nil {
		t.Fatalf("load variant stock: %v", err)
	}
	return variant.Stock
}
