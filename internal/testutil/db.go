package testutil

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

// OpenDB returns an isolated in-memory sqlite database with every model
// migrated. A single connection serializes transactions the way row locks
// would on Postgres.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:market_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// MustCreateProduct inserts an active product with one variant per stock value.
func MustCreateProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, priceKrw int64, stocks ...int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID: sellerID,
		Name:     fmt.Sprintf("product-%s", uuid.NewString()[:8]),
		PriceKrw: priceKrw,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, stock := range stocks {
		variant := models.ProductVariant{ProductID: product.ID, Stock: stock}
		if err := db.Create(&variant).Error; err != nil {
			t.Fatalf("create variant: %v", err)
		}
		product.Variants = append(product.Variants, variant)
	}
	return product
}

func MustCreateShippingPolicy(t *testing.T, db *gorm.DB, sellerID uuid.UUID, feeKrw, thresholdKrw int64) {
	t.Helper()
	policy := &models.SellerShippingPolicy{
		SellerID:                 sellerID,
		ShippingFeeKrw:           feeKrw,
		FreeShippingThresholdKrw: thresholdKrw,
	}
	if err := db.Create(policy).Error; err != nil {
		t.Fatalf("create shipping policy: %v", err)
	}
}

func MustCreateAddress(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.Address {
	t.Helper()
	memo := "leave at the door"
	addr := &models.Address{
		UserID: userID,
		Name:   "Kim Minji",
		Phone:  "010-1234-5678",
		Zip:    "04524",
		Addr1:  "110 Sejong-daero, Jung-gu",
		Memo:   &memo,
	}
	if err := db.Create(addr).Error; err != nil {
		t.Fatalf("create address: %v", err)
	}
	return addr
}

// OrderLine seeds one order item.
type OrderLine struct {
	Variant  *models.ProductVariant
	Quantity int
	UnitKrw  int64
}

// MustCreateOrder inserts an order in the given status with a READY payment.
func MustCreateOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, lines ...OrderLine) *models.Order {
	t.Helper()
	expires := time.Now().UTC().Add(30 * time.Minute)
	order := &models.Order{
		OrderNo:   fmt.Sprintf("TEST-%s", uuid.NewString()[:12]),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Status:    status,
		ExpiresAt: &expires,
	}
	for _, line := range lines {
		item := models.OrderItem{
			ProductName:  "seeded",
			Quantity:     line.Quantity,
			UnitPriceKrw: line.UnitKrw,
		}
		if line.Variant != nil {
			variantID, productID := line.Variant.ID, line.Variant.ProductID
			item.VariantID = &variantID
			item.ProductID = &productID
		}
		order.Items = append(order.Items, item)
		order.ItemsSubtotalKrw += item.LineTotalKrw()
	}
	order.TotalPayKrw = order.ItemsSubtotalKrw + order.ShippingFeeKrw
	order.Payment = &models.Payment{Status: enums.PaymentStatusReady, AmountKrw: order.TotalPayKrw}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

// VariantStock reads the current stock counter.
func VariantStock(t *testing.T, db *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := db.First(&variant, "id = ?", variantID).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Stock
}

func MustCreateCartItem(t *testing.T, db *gorm.DB, buyerID uuid.UUID, variant *models.ProductVariant, qty int) *models.CartItem {
	t.Helper()
	item := &models.CartItem{
		BuyerID:   buyerID,
		ProductID: variant.ProductID,
		VariantID: variant.ID,
		Quantity:  qty,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create cart item: %v", err)
	}
	return item
}
