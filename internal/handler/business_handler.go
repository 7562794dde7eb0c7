package handler

import (
	"net/http"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/internal/middleware"
	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/internal/upload"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"
	"github.com/BurakKama/fullstack-mobile-app/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// businessProjection is the public listing shape of a business
type businessProjection struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ImageURL    string `json:"image_url"`
}

// saveUploadedImage stores the "image" multipart field if one was sent.
// Returns the stored URL path, or "" when the request carried no image.
func saveUploadedImage(c echo.Context) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		// No file in the request
		return "", nil
	}

	imageURL, err := upload.SaveImage(file)
	if err != nil {
		return "", err
	}

	prometheus.UploadCounter.Inc()
	return imageURL, nil
}

// CreateBusiness registers a business owned by the authenticated user.
// A user may not register two businesses under the same contact email.
func CreateBusiness(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordBusinessOperation("create")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	name := c.FormValue("name")
	email := c.FormValue("email")
	if name == "" || email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "business name and email are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Business
	result := database.GetDB().Where("user_id = ? AND email = ?", identity.ID, email).First(&existing)
	if result.Error == nil {
		log.Warn("Duplicate business email for owner",
			zap.Uint("user_id", identity.ID),
			zap.String("email", email))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a business with this email already exists"})
	}

	imageURL, err := saveUploadedImage(c)
	if err != nil {
		log.Error("Failed to store business image", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	business := model.Business{
		Name:        name,
		Description: c.FormValue("description"),
		Address:     c.FormValue("address"),
		Phone:       c.FormValue("phone"),
		Email:       email,
		UserID:      identity.ID,
		ImageURL:    imageURL,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&business); result.Error != nil {
		log.Error("Failed to create business", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business creation failed"})
	}

	log.Info("Business created",
		zap.Uint("business_id", business.ID),
		zap.Uint("owner_id", identity.ID),
		zap.String("name", business.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "business created",
		"business": business,
	})
}

// UpdateOwnBusiness updates the business matching the authenticated owner
// and the email sent in the body. The email doubles as an ownership factor;
// a miss on either is reported as not found.
func UpdateOwnBusiness(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordBusinessOperation("update")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	email := c.FormValue("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	result := database.GetDB().Where("user_id = ? AND email = ?", identity.ID, email).First(&business)
	if result.Error != nil {
		log.Warn("Business update lookup miss",
			zap.Uint("user_id", identity.ID),
			zap.String("email", email))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found or email mismatch"})
	}

	updates := map[string]interface{}{}
	if v := c.FormValue("name"); v != "" {
		updates["name"] = v
	}
	if v := c.FormValue("description"); v != "" {
		updates["description"] = v
	}
	if v := c.FormValue("address"); v != "" {
		updates["address"] = v
	}
	if v := c.FormValue("phone"); v != "" {
		updates["phone"] = v
	}

	imageURL, err := saveUploadedImage(c)
	if err != nil {
		log.Error("Failed to store business image", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if imageURL != "" {
		updates["image_url"] = imageURL
	}

	if len(updates) > 0 {
		defer prometheus.TrackDBOperation("update")(time.Now())
		if result := database.GetDB().Model(&business).Updates(updates); result.Error != nil {
			log.Error("Failed to update business", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business update failed"})
		}
	}

	log.Info("Business updated", zap.Uint("business_id", business.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "business updated",
		"business": business,
	})
}

// DeleteOwnBusiness deletes the business matching the authenticated owner
// and the email sent in the body. Products cascade with it.
func DeleteOwnBusiness(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordBusinessOperation("delete")

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	result := database.GetDB().Where("user_id = ? AND email = ?", identity.ID, req.Email).First(&business)
	if result.Error != nil {
		log.Warn("Business delete lookup miss",
			zap.Uint("user_id", identity.ID),
			zap.String("email", req.Email))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found or email mismatch"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&business); result.Error != nil {
		log.Error("Failed to delete business", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business deletion failed"})
	}

	log.Info("Business deleted", zap.Uint("business_id", business.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "business deleted"})
}

// ListOwnBusinesses returns the authenticated user's businesses
func ListOwnBusinesses(c echo.Context) error {
	log := logger.FromContext(c)

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var businesses []model.Business
	if result := database.GetDB().Where("user_id = ?", identity.ID).Find(&businesses); result.Error != nil {
		log.Error("Failed to list own businesses", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve businesses"})
	}

	return c.JSON(http.StatusOK, echo.Map{"businesses": businesses})
}

// ListAllBusinesses is the public, paginated business directory
func ListAllBusinesses(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordBusinessOperation("list")

	page, limit, offset := parsePagination(c)

	var count int64
	database.GetDB().Model(&model.Business{}).Count(&count)

	var businesses []businessProjection
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().Model(&model.Business{}).
		Select("id, name, description, address, phone, email, image_url").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Scan(&businesses)
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

// ListBusinessProducts is the public product listing of one business.
// An unknown business id yields an empty list, not an error.
func ListBusinessProducts(c echo.Context) error {
	log := logger.FromContext(c)

	businessID := c.Param("businessId")
	page, limit, offset := parsePagination(c)

	var products []model.Product
	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list business products",
			zap.String("business_id", businessID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products":    products,
		"currentPage": page,
	})
}
