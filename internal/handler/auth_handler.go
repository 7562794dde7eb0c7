package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/internal/middleware"
	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/pkg/config"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/jwtutil"
	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"
	"github.com/BurakKama/fullstack-mobile-app/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var refreshTokenLifetime time.Duration

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// InitAuthHandler injects the configuration the auth handlers need
func InitAuthHandler(cfg *config.Config) {
	refreshTokenLifetime = cfg.JWT.RefreshExpiration
}

func userProjection(user *model.User) echo.Map {
	return echo.Map{
		"id":        user.ID,
		"full_name": user.FullName,
		"email":     user.Email,
		"user_type": user.UserType,
	}
}

// issueTokenPair generates an access token plus a registry-backed refresh
// token for the user. The refresh token's jti is the registry row key.
func issueTokenPair(user *model.User) (string, string, error) {
	accessToken, err := jwtutil.GenerateAccessToken(user.ID, user.Email, user.UserType)
	if err != nil {
		return "", "", err
	}

	tokenID := uuid.New().String()
	refreshToken, err := jwtutil.GenerateRefreshToken(user.ID, tokenID)
	if err != nil {
		return "", "", err
	}

	record := model.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(refreshTokenLifetime),
	}
	if result := database.GetDB().Create(&record); result.Error != nil {
		return "", "", result.Error
	}

	prometheus.IncreaseActiveTokens()
	return accessToken, refreshToken, nil
}

// Register creates a new account and logs it in
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		UserType string `json:"user_type"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.FullName == "" || req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full name, email and password are required"})
	}

	if !emailPattern.MatchString(req.Email) {
		prometheus.RecordAuthError("invalid_email")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}

	// Admin accounts are granted through the admin API, never self-assigned
	switch req.UserType {
	case "":
		req.UserType = model.RoleCustomer
	case model.RoleCustomer, model.RoleBusiness:
	default:
		prometheus.RecordAuthError("invalid_user_type")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user type"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existing); result.Error == nil {
		log.Warn("Registration with existing email", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashedPassword),
		UserType: req.UserType,
		Status:   model.StatusActive,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	}

	// Auto-login on successful registration
	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User registered", zap.String("email", user.Email), zap.String("user_type", user.UserType))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "user registered successfully",
		"user":         userProjection(&user),
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Login authenticates a user with email and password
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Unknown email and wrong password answer identically so account
	// existence cannot be probed
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("Login with unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Login with wrong password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	if user.Status != model.StatusActive {
		log.Warn("Login on inactive account", zap.String("email", req.Email))
		prometheus.RecordAuthError("account_inactive")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is not active"})
	}

	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "login successful",
		"user":         userProjection(&user),
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Profile returns the authenticated user's projection; business owners get
// their business record embedded
func Profile(c echo.Context) error {
	log := logger.FromContext(c)

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	response := echo.Map{
		"id":        identity.ID,
		"full_name": identity.FullName,
		"email":     identity.Email,
		"user_type": identity.UserType,
	}

	if identity.UserType == model.RoleBusiness {
		var business model.Business
		if result := database.GetDB().Where("user_id = ?", identity.ID).First(&business); result.Error == nil {
			response["business"] = business
		} else {
			response["business"] = nil
		}
	}

	log.Debug("Profile fetched", zap.Uint("user_id", identity.ID))
	return c.JSON(http.StatusOK, response)
}

// UpdateProfile applies a partial patch to the authenticated user
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		FullName *string `json:"full_name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var user model.User
	if result := database.GetDB().First(&user, identity.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	updates := map[string]interface{}{}

	if req.FullName != nil && *req.FullName != "" {
		updates["full_name"] = *req.FullName
	}

	if req.Email != nil && *req.Email != "" && *req.Email != user.Email {
		if !emailPattern.MatchString(*req.Email) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
		}
		var count int64
		database.GetDB().Model(&model.User{}).Where("email = ? AND id != ?", *req.Email, user.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
		}
		updates["email"] = *req.Email
	}

	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile update failed"})
		}
		updates["password"] = string(hashed)
	}

	if len(updates) > 0 {
		defer prometheus.TrackDBOperation("update")(time.Now())
		if result := database.GetDB().Model(&user).Updates(updates); result.Error != nil {
			log.Error("Failed to update profile", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile update failed"})
		}
	}

	log.Info("Profile updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, userProjection(&user))
}

// DeleteSelf removes the authenticated user's account. Owned businesses and
// their products go with it through the cascade constraints.
func DeleteSelf(c echo.Context) error {
	log := logger.FromContext(c)

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&model.User{}, identity.ID); result.Error != nil {
		log.Error("Failed to delete account", zap.Uint("user_id", identity.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "account deletion failed"})
	}

	log.Info("Account deleted", zap.Uint("user_id", identity.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "account deleted"})
}

// RefreshToken exchanges a valid refresh token for a fresh token pair.
// Refresh tokens are one-time use: the presented token's registry row is
// revoked before the replacement is issued, so replaying it fails.
func RefreshToken(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RefreshCounter.Inc()

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("missing_refresh_token")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token is required"})
	}

	claims, err := jwtutil.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var record model.RefreshToken
	if result := database.GetDB().First(&record, "id = ?", claims.ID); result.Error != nil {
		log.Warn("Refresh token not in registry", zap.String("token_id", claims.ID))
		prometheus.RecordAuthError("unknown_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	if !record.IsValid() {
		log.Warn("Revoked or expired refresh token replayed",
			zap.String("token_id", record.ID),
			zap.Bool("revoked", record.Revoked))
		prometheus.RecordAuthError("refresh_token_replayed")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	var user model.User
	if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
		log.Warn("Refresh token user gone", zap.Uint("user_id", claims.UserID))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	// Consume the presented token before issuing the replacement
	if result := database.GetDB().Model(&record).Update("revoked", true); result.Error != nil {
		log.Error("Failed to revoke refresh token", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.DecreaseActiveTokens()

	accessToken, refreshToken, err := issueTokenPair(&user)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Token pair rotated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}
