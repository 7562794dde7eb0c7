package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/internal/middleware"
	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/internal/upload"
	"github.com/BurakKama/fullstack-mobile-app/pkg/config"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTest wires an in-memory database and a fully routed echo instance,
// mirroring the route table in cmd/main.go
func setupTest(t *testing.T) *echo.Echo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(&model.User{}, &model.Business{}, &model.Product{}, &model.RefreshToken{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	database.DB = db

	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSigningKey:  "test-access-secret",
			RefreshSigningKey: "test-refresh-secret",
			AccessExpiration:  1 * time.Hour,
			RefreshExpiration: 7 * 24 * time.Hour,
		},
		Upload: config.UploadConfig{
			Dir:       t.TempDir(),
			MaxSizeMB: 5,
			URLPrefix: "/uploads",
		},
	}
	jwtutil.Initialize(&cfg.JWT)
	InitAuthHandler(cfg)
	if err := upload.Initialize(&cfg.Upload); err != nil {
		t.Fatalf("failed to initialize upload storage: %v", err)
	}

	e := echo.New()

	auth := e.Group("/api/auth")
	auth.POST("/register", Register)
	auth.POST("/login", Login)
	auth.POST("/refresh-token", RefreshToken)
	auth.GET("/profile", Profile, middleware.Auth)
	auth.PUT("/profile", UpdateProfile, middleware.Auth)
	auth.DELETE("/delete", DeleteSelf, middleware.Auth)

	businesses := e.Group("/api/businesses")
	businesses.GET("/all", ListAllBusinesses)
	businesses.GET("/:businessId/products", ListBusinessProducts)
	businesses.GET("", ListOwnBusinesses, middleware.Auth)
	businesses.POST("", CreateBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	businesses.PUT("/update-self", UpdateOwnBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	businesses.DELETE("/delete-self", DeleteOwnBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))

	products := e.Group("/api/products")
	products.GET("", ListProducts)
	products.GET("/:id", GetProduct)
	products.POST("", CreateProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.PUT("/:id", UpdateProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.DELETE("/:id", DeleteProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.POST("/:id/upload-image", UploadProductImage, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))

	admin := e.Group("/api/admin", middleware.Auth, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", AdminListUsers)
	admin.PUT("/users/:id/role", AdminUpdateUserRole)
	admin.DELETE("/users/:id", AdminDeleteUser)
	admin.GET("/businesses", AdminListBusinesses)
	admin.PUT("/businesses/:id", AdminUpdateBusiness)
	admin.DELETE("/businesses/:id", AdminDeleteBusiness)
	admin.GET("/products", AdminListProducts)
	admin.PUT("/products/:id", AdminUpdateProduct)
	admin.DELETE("/products/:id", AdminDeleteProduct)

	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doForm(t *testing.T, e *echo.Echo, method, path, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doMultipart(t *testing.T, e *echo.Echo, method, path, token string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write form field: %v", err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

// registerUser registers through the API and returns the token pair
func registerUser(t *testing.T, e *echo.Echo, fullName, email, password, userType string) (token, refreshToken string) {
	t.Helper()

	rec := doJSON(t, e, http.MethodPost, "/api/auth/register", "", echo.Map{
		"full_name": fullName,
		"email":     email,
		"password":  password,
		"user_type": userType,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	token, _ = body["token"].(string)
	refreshToken, _ = body["refreshToken"].(string)
	if token == "" || refreshToken == "" {
		t.Fatalf("register %s: missing tokens in response", email)
	}
	return token, refreshToken
}

// promoteToAdmin flips a user's role directly in the store. The existing
// token keeps working because Auth re-reads the user on every request.
func promoteToAdmin(t *testing.T, email string) {
	t.Helper()
	result := database.GetDB().Model(&model.User{}).Where("email = ?", email).Update("user_type", model.RoleAdmin)
	if result.Error != nil || result.RowsAffected == 0 {
		t.Fatalf("failed to promote %s to admin: %v", email, result.Error)
	}
}

// createBusinessFor registers a business through the API for the given token
func createBusinessFor(t *testing.T, e *echo.Echo, token, name, email string) uint {
	t.Helper()

	rec := doForm(t, e, http.MethodPost, "/api/businesses", token, url.Values{
		"name":  {name},
		"email": {email},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create business %s: status = %d, body = %s", name, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	business, _ := body["business"].(map[string]interface{})
	id, _ := business["id"].(float64)
	return uint(id)
}

// createProductFor creates a product through the API for the given token
func createProductFor(t *testing.T, e *echo.Echo, token string, fields map[string]string) uint {
	t.Helper()

	form := url.Values{}
	for key, value := range fields {
		form.Set(key, value)
	}
	if form.Get("expiration_date") == "" {
		form.Set("expiration_date", time.Now().AddDate(0, 0, 3).Format("2006-01-02"))
	}

	rec := doForm(t, e, http.MethodPost, "/api/products", token, form)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	product, _ := body["product"].(map[string]interface{})
	id, _ := product["id"].(float64)
	return uint(id)
}
