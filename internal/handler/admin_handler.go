package handler

import (
	"net/http"
	"strconv"
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

// AdminListUsers returns all users, paginated, newest first. The password
// hash never serializes.
func AdminListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("list_users")

	page, limit, offset := parsePagination(c)

	var count int64
	database.GetDB().Model(&model.User{}).Count(&count)

	var users []model.User
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users)
	if result.Error != nil {
		log.Error("Failed to list users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"totalUsers":  count,
		"totalPages":  totalPages(count, limit),
		"currentPage": page,
		"users":       users,
	})
}

// AdminUpdateUserRole changes another user's role. Admins cannot change
// their own role, so the last admin cannot lock everyone out by accident.
func AdminUpdateUserRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_user_role")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req struct {
		UserType string `json:"user_type"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !model.ValidRole(req.UserType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user type"})
	}

	if identity.ID == uint(targetID) {
		log.Warn("Admin attempted to change own role", zap.Uint("admin_id", identity.ID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot change own role"})
	}

	var user model.User
	if result := database.GetDB().First(&user, targetID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&user).Update("user_type", req.UserType); result.Error != nil {
		log.Error("Failed to update user role", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	log.Info("User role updated",
		zap.Uint("admin_id", identity.ID),
		zap.Uint64("user_id", targetID),
		zap.String("user_type", req.UserType))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "user role updated",
		"user":    user,
	})
}

// AdminDeleteUser removes any user except the acting admin
func AdminDeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("delete_user")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	if identity.ID == uint(targetID) {
		log.Warn("Admin attempted to delete own account", zap.Uint("admin_id", identity.ID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete own account"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.User{}, targetID)
	if result.Error != nil {
		log.Error("Failed to delete user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user deletion failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	log.Info("User deleted by admin",
		zap.Uint("admin_id", identity.ID),
		zap.Uint64("user_id", targetID))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// AdminListBusinesses returns all businesses with their owner projection
func AdminListBusinesses(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("list_businesses")

	page, limit, offset := parsePagination(c)

	var count int64
	database.GetDB().Model(&model.Business{}).Count(&count)

	var businesses []model.Business
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, full_name, email")
		}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&businesses)
	if result.Error != nil {
		log.Error("Failed to list businesses", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve businesses"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"businesses":      businesses,
		"totalBusinesses": count,
		"totalPages":      totalPages(count, limit),
		"currentPage":     page,
	})
}

// AdminUpdateBusiness patches any business by id, no ownership filter
func AdminUpdateBusiness(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_business")

	var business model.Business
	if result := database.GetDB().First(&business, "id = ?", c.Param("id")); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Address     *string `json:"address"`
		Phone       *string `json:"phone"`
		Email       *string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}

	if len(updates) > 0 {
		defer prometheus.TrackDBOperation("update")(time.Now())
		if result := database.GetDB().Model(&business).Updates(updates); result.Error != nil {
			log.Error("Failed to update business", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business update failed"})
		}
	}

	log.Info("Business updated by admin", zap.Uint("business_id", business.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "business updated",
		"business": business,
	})
}

// AdminDeleteBusiness removes any business by id; its products cascade
func AdminDeleteBusiness(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("delete_business")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.Business{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		log.Error("Failed to delete business", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business deletion failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}

	log.Info("Business deleted by admin", zap.String("business_id", c.Param("id")))
	return c.JSON(http.StatusOK, echo.Map{"message": "business deleted"})
}

// AdminListProducts returns all products with their business projection
func AdminListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("list_products")

	page, limit, offset := parsePagination(c)

	var count int64
	database.GetDB().Model(&model.Product{}).Count(&count)

	var products []model.Product
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Preload("Business", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name")
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

// AdminUpdateProduct patches any product by id, no ownership filter
func AdminUpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_product")

	var product model.Product
	if result := database.GetDB().First(&product, "id = ?", c.Param("id")); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	var req struct {
		Name            *string  `json:"name"`
		Description     *string  `json:"description"`
		Price           *float64 `json:"price"`
		DiscountedPrice *float64 `json:"discounted_price"`
		Quantity        *int     `json:"quantity"`
		Category        *string  `json:"category"`
		ExpirationDate  *string  `json:"expiration_date"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}

	price := product.Price
	if req.Price != nil {
		if *req.Price <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive number"})
		}
		price = *req.Price
		updates["price"] = *req.Price
	}

	if req.DiscountedPrice != nil {
		if *req.DiscountedPrice <= 0 || *req.DiscountedPrice >= price {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discounted price must be lower than price"})
		}
		updates["discounted_price"] = *req.DiscountedPrice
	}

	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a non-negative integer"})
		}
		updates["quantity"] = *req.Quantity
	}

	if req.ExpirationDate != nil {
		expirationDate, err := parseExpirationDate(*req.ExpirationDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid expiration date"})
		}
		updates["expiration_date"] = expirationDate
	}

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}

	if len(updates) > 0 {
		defer prometheus.TrackDBOperation("update")(time.Now())
		if result := database.GetDB().Model(&product).Updates(updates); result.Error != nil {
			log.Error("Failed to update product", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product update failed"})
		}
	}

	log.Info("Product updated by admin", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "product updated",
		"product": product,
	})
}

// AdminDeleteProduct removes any product by id
func AdminDeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("delete_product")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.Product{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		log.Error("Failed to delete product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product deletion failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	log.Info("Product deleted by admin", zap.String("product_id", c.Param("id")))
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
