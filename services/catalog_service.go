package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopcart-service/models"
	"shopcart-service/repository"
)

// usdToINR converts seed prices from the upstream catalog.
var usdToINR = decimal.NewFromInt(83)

// CatalogService lists and seeds products.
type CatalogService interface {
	List(ctx context.Context) ([]models.Product, error)
	// Seed fills an empty catalog and reports how many products were added.
	Seed(ctx context.Context) (int, error)
}

type catalogServiceImpl struct {
	repo    repository.ProductRepository
	client  *http.Client
	seedURL string
	logger  *zap.Logger
}

func NewCatalogService(repo repository.ProductRepository, client *http.Client, seedURL string, logger *zap.Logger) CatalogService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &catalogServiceImpl{repo: repo, client: client, seedURL: seedURL, logger: logger}
}

func (s *catalogServiceImpl) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *catalogServiceImpl) Seed(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		s.logger.Info("Products already seeded", zap.Int64("count", count))
		return 0, nil
	}

	products, err := s.fetchUpstream(ctx)
	if err != nil {
		s.logger.Warn("Upstream catalog unavailable, using built-in products", zap.Error(err))
		products = fallbackProducts()
	}

	if err := s.repo.CreateMany(ctx, products); err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	s.logger.Info("Seeded products", zap.Int("count", len(products)))
	return len(products), nil
}

type upstreamProduct struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

func (s *catalogServiceImpl) fetchUpstream(ctx context.Context) ([]models.Product, error) {
	if s.seedURL == "" {
		return nil, fmt.Errorf("no seed url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.seedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream catalog returned %d", resp.StatusCode)
	}

	var upstream []upstreamProduct
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("decode upstream catalog: %w", err)
	}
	if len(upstream) == 0 {
		return nil, fmt.Errorf("upstream catalog is empty")
	}

	products := make([]models.Product, 0, len(upstream))
	for _, p := range upstream {
		if p.Title == "" || p.Price.IsNegative() {
			continue
		}
		products = append(products, models.Product{
			Name:  p.Title,
			Price: p.Price.Mul(usdToINR).Round(0),
			Image: p.Image,
		})
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("upstream catalog had no usable products")
	}
	return products, nil
}

func fallbackProducts() []models.Product {
	items := []struct {
		name  string
		price int64
		image string
	}{
		{"Wireless Headphones", 6499, "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500"},
		{"Smart Watch", 16499, "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=500"},
		{"Laptop Backpack", 3999, "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=500"},
		{"Coffee Maker", 7499, "https://images.unsplash.com/photo-1517668808822-9ebb02f2a0e6?w=500"},
		{"Gaming Mouse", 4999, "https://images.unsplash.com/photo-1527814050087-3793815479db?w=500"},
		{"Bluetooth Speaker", 10499, "https://images.unsplash.com/photo-1608043152269-423dbba4e7e1?w=500"},
		{"Fitness Tracker", 8299, "https://images.unsplash.com/photo-1575311373937-040b8e1fd5b6?w=500"},
		{"Desk Lamp", 3299, "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=500"},
	}
	products := make([]models.Product, 0, len(items))
	for _, it := range items {
		products = append(products, models.Product{
			Name:  it.name,
			Price: decimal.NewFromInt(it.price),
			Image: it.image,
		})
	}
	return products
}
