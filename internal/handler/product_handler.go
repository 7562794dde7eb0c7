package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/internal/middleware"
	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"
	"github.com/BurakKama/fullstack-mobile-app/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var expirationDateFormats = []string{"2006-01-02", time.RFC3339}

func parseExpirationDate(value string) (time.Time, error) {
	var err error
	for _, format := range expirationDateFormats {
		var t time.Time
		if t, err = time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// findOwnedProduct loads the product and verifies the acting identity owns
// the business it belongs to. The HTTP status to respond with is returned
// alongside the error cases: 404 for a missing product, 403 for a product
// owned by someone else.
func findOwnedProduct(identity *middleware.Identity, productID string) (*model.Product, int) {
	var product model.Product
	if result := database.GetDB().First(&product, "id = ?", productID); result.Error != nil {
		return nil, http.StatusNotFound
	}

	var business model.Business
	result := database.GetDB().
		Where("id = ? AND user_id = ?", product.BusinessID, identity.ID).
		First(&business)
	if result.Error != nil {
		return nil, http.StatusForbidden
	}

	return &product, http.StatusOK
}

// CreateProduct creates a product under the business owned by the
// authenticated user. Without an owned business there is nothing to attach
// the product to, which is reported as not found.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("create")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	name := c.FormValue("name")
	priceStr := c.FormValue("price")
	quantityStr := c.FormValue("quantity")
	category := c.FormValue("category")
	expirationStr := c.FormValue("expiration_date")

	if name == "" || priceStr == "" || quantityStr == "" || category == "" || expirationStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, price, quantity, category and expiration_date are required"})
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive number"})
	}

	quantity, err := strconv.Atoi(quantityStr)
	if err != nil || quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a non-negative integer"})
	}

	expirationDate, err := parseExpirationDate(expirationStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid expiration date"})
	}

	var discountedPrice *float64
	if v := c.FormValue("discounted_price"); v != "" {
		dp, err := strconv.ParseFloat(v, 64)
		if err != nil || dp <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discounted price must be a positive number"})
		}
		if dp >= price {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discounted price must be lower than price"})
		}
		discountedPrice = &dp
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	if result := database.GetDB().Where("user_id = ?", identity.ID).First(&business); result.Error != nil {
		log.Warn("Product creation without owned business", zap.Uint("user_id", identity.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}

	imageURL, err := saveUploadedImage(c)
	if err != nil {
		log.Error("Failed to store product image", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	product := model.Product{
		Name:            name,
		Description:     c.FormValue("description"),
		Price:           price,
		DiscountedPrice: discountedPrice,
		Quantity:        quantity,
		Category:        category,
		ExpirationDate:  expirationDate,
		BusinessID:      business.ID,
		ImageURL:        imageURL,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product creation failed"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.Uint("business_id", business.ID),
		zap.String("name", product.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "product created",
		"product": product,
	})
}

// ListProducts is the public catalog with optional case-insensitive
// category and name-or-category substring filters, AND-composed.
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("list")

	page, limit, offset := parsePagination(c)

	filters := func(db *gorm.DB) *gorm.DB {
		if category := c.QueryParam("category"); category != "" {
			db = db.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(category)+"%")
		}
		if search := c.QueryParam("search"); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			db = db.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
		}
		return db
	}

	var count int64
	filters(database.GetDB().Model(&model.Product{})).Count(&count)

	var products []model.Product
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := filters(database.GetDB().Model(&model.Product{})).
		Preload("Business", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, address, phone")
		}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products":      products,
		"totalProducts": count,
		"totalPages":    totalPages(count, limit),
		"currentPage":   page,
	})
}

// GetProduct returns one product by id, publicly
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var product model.Product
	result := database.GetDB().
		Preload("Business", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, address, phone")
		}).
		First(&product, "id = ?", c.Param("id"))
	if result.Error != nil {
		log.Warn("Product not found", zap.String("product_id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"product": product})
}

// UpdateProduct patches a product owned by the authenticated user's business
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("update")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	product, status := findOwnedProduct(identity, c.Param("id"))
	if status == http.StatusNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if status == http.StatusForbidden {
		log.Warn("Foreign product update attempt",
			zap.Uint("user_id", identity.ID),
			zap.String("product_id", c.Param("id")))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this product"})
	}

	updates := map[string]interface{}{}

	price := product.Price
	if v := c.FormValue("price"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive number"})
		}
		price = parsed
		updates["price"] = parsed
	}

	if v := c.FormValue("discounted_price"); v != "" {
		dp, err := strconv.ParseFloat(v, 64)
		if err != nil || dp <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discounted price must be a positive number"})
		}
		if dp >= price {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discounted price must be lower than price"})
		}
		updates["discounted_price"] = dp
	}

	if v := c.FormValue("quantity"); v != "" {
		quantity, err := strconv.Atoi(v)
		if err != nil || quantity < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a non-negative integer"})
		}
		updates["quantity"] = quantity
	}

	if v := c.FormValue("expiration_date"); v != "" {
		expirationDate, err := parseExpirationDate(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid expiration date"})
		}
		updates["expiration_date"] = expirationDate
	}

	if v := c.FormValue("name"); v != "" {
		updates["name"] = v
	}
	if v := c.FormValue("description"); v != "" {
		updates["description"] = v
	}
	if v := c.FormValue("category"); v != "" {
		updates["category"] = v
	}

	imageURL, err := saveUploadedImage(c)
	if err != nil {
		log.Error("Failed to store product image", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if imageURL != "" {
		updates["image_url"] = imageURL
	}

	if len(updates) > 0 {
		defer prometheus.TrackDBOperation("update")(time.Now())
		if result := database.GetDB().Model(product).Updates(updates); result.Error != nil {
			log.Error("Failed to update product", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product update failed"})
		}
	}

	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "product updated",
		"product": product,
	})
}

// DeleteProduct removes a product owned by the authenticated user's business
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("delete")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	product, status := findOwnedProduct(identity, c.Param("id"))
	if status == http.StatusNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if status == http.StatusForbidden {
		log.Warn("Foreign product delete attempt",
			zap.Uint("user_id", identity.ID),
			zap.String("product_id", c.Param("id")))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this product"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(product); result.Error != nil {
		log.Error("Failed to delete product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product deletion failed"})
	}

	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// UploadProductImage stores a new image for an owned product. The ownership
// check matches update and delete; the image path is no exception.
func UploadProductImage(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("upload_image")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	product, status := findOwnedProduct(identity, c.Param("id"))
	if status == http.StatusNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if status == http.StatusForbidden {
		log.Warn("Foreign product image upload attempt",
			zap.Uint("user_id", identity.ID),
			zap.String("product_id", c.Param("id")))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this product"})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file is required"})
	}

	imageURL, err := saveUploadedImage(c)
	if err != nil || imageURL == "" {
		log.Error("Failed to store product image", zap.String("filename", file.Filename), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to store image"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(product).Update("image_url", imageURL); result.Error != nil {
		log.Error("Failed to persist product image", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "image upload failed"})
	}

	log.Info("Product image uploaded", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "image uploaded",
		"imageUrl": imageURL,
	})
}
