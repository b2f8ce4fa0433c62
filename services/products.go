package services

import (
	"context"
	"errors"

	"snackbox/models"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService manages the snack catalog.
type ProductService struct {
	DB *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{DB: db}
}

func (s *ProductService) Create(ctx context.Context, name, barcode string, price decimal.Decimal) (*models.Product, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}
	product := models.Product{
		Name:    name,
		Slug:    slug.Make(name),
		Barcode: barcode,
		Price:   price,
		Active:  true,
	}
	if err := s.DB.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, name string, price decimal.Decimal, active bool) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if name != "" && name != product.Name {
		product.Name = name
		product.Slug = slug.Make(name)
	}
	if price.IsPositive() {
		product.Price = price
	}
	product.Active = active
	if err := s.DB.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) GetBySlug(ctx context.Context, productSlug string) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).Where("slug = ?", productSlug).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns the catalog; inactive products are included only when
// includeInactive is set (admin view).
func (s *ProductService) List(ctx context.Context, includeInactive bool) ([]models.Product, error) {
	q := s.DB.WithContext(ctx).Order("name")
	if !includeInactive {
		q = q.Where("active = true")
	}
	var products []models.Product
	err := q.Find(&products).Error
	return products, err
}
