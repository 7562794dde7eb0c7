package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"

	"github.com/labstack/echo/v4"
)

func TestCreateBusiness(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)

	rec := doForm(t, e, http.MethodPost, "/api/businesses", token, url.Values{
		"name":        {"Gunaydin Firin"},
		"email":       {"firin@example.com"},
		"address":     {"Kadikoy"},
		"phone":       {"05551234567"},
		"description": {"Fresh bakery surplus"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create business status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	business, _ := body["business"].(map[string]interface{})
	if business["name"] != "Gunaydin Firin" {
		t.Errorf("business name = %v, want Gunaydin Firin", business["name"])
	}
	if business["address"] != "Kadikoy" {
		t.Errorf("business address = %v, want Kadikoy", business["address"])
	}
}

func TestCreateBusinessValidation(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)

	rec := doForm(t, e, http.MethodPost, "/api/businesses", token, url.Values{
		"name": {"No Email"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing email status = %d, want 400", rec.Code)
	}
}

func TestCreateBusinessDuplicateEmailPerOwner(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, token, "First Shop", "shop@example.com")

	rec := doForm(t, e, http.MethodPost, "/api/businesses", token, url.Values{
		"name":  {"Second Shop"},
		"email": {"shop@example.com"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["error"] != "a business with this email already exists" {
		t.Errorf("unexpected error message: %s", rec.Body.String())
	}

	// The same contact email under a different owner is allowed
	otherToken, _ := registerUser(t, e, "Other", "other@example.com", "password", model.RoleBusiness)
	rec = doForm(t, e, http.MethodPost, "/api/businesses", otherToken, url.Values{
		"name":  {"Other Shop"},
		"email": {"shop@example.com"},
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("same email, different owner status = %d, want 201", rec.Code)
	}
}

func TestCustomerCannotCreateBusiness(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Buyer", "buyer@example.com", "password", model.RoleCustomer)

	rec := doForm(t, e, http.MethodPost, "/api/businesses", token, url.Values{
		"name":  {"Sneaky Shop"},
		"email": {"sneaky@example.com"},
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer create business status = %d, want 403", rec.Code)
	}
}

func TestUpdateOwnBusiness(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	id := createBusinessFor(t, e, token, "Old Name", "shop@example.com")

	rec := doForm(t, e, http.MethodPut, "/api/businesses/update-self", token, url.Values{
		"email":   {"shop@example.com"},
		"name":    {"New Name"},
		"address": {"Besiktas"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update business status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var business model.Business
	database.GetDB().First(&business, id)
	if business.Name != "New Name" || business.Address != "Besiktas" {
		t.Errorf("business after update = %+v, want name=New Name address=Besiktas", business)
	}
}

func TestUpdateBusinessEmailMismatch(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, token, "Shop", "shop@example.com")

	rec := doForm(t, e, http.MethodPut, "/api/businesses/update-self", token, url.Values{
		"email": {"wrong@example.com"},
		"name":  {"Hijacked"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("email mismatch status = %d, want 404", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "business not found or email mismatch" {
		t.Errorf("unexpected error message: %s", rec.Body.String())
	}
}

func TestUpdateBusinessOfAnotherOwner(t *testing.T) {
	e := setupTest(t)

	ownerToken, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, ownerToken, "Victim Shop", "victim@example.com")

	// The attacker knows the email but does not own the business
	attackerToken, _ := registerUser(t, e, "Attacker", "attacker@example.com", "password", model.RoleBusiness)
	rec := doForm(t, e, http.MethodPut, "/api/businesses/update-self", attackerToken, url.Values{
		"email": {"victim@example.com"},
		"name":  {"Hijacked"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign business update status = %d, want 404", rec.Code)
	}

	var business model.Business
	database.GetDB().Where("email = ?", "victim@example.com").First(&business)
	if business.Name != "Victim Shop" {
		t.Errorf("business name = %q, foreign update must not stick", business.Name)
	}
}

func TestDeleteOwnBusinessCascadesProducts(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, token, "Shop", "shop@example.com")
	createProductFor(t, e, token, map[string]string{
		"name":     "Poaca",
		"price":    "7.5",
		"quantity": "4",
		"category": "bakery",
	})

	rec := doJSON(t, e, http.MethodDelete, "/api/businesses/delete-self", token, echo.Map{
		"email": "shop@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete business status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var businesses, products int64
	database.GetDB().Model(&model.Business{}).Count(&businesses)
	database.GetDB().Model(&model.Product{}).Count(&products)
	if businesses != 0 || products != 0 {
		t.Errorf("after delete: businesses=%d products=%d, want both 0", businesses, products)
	}
}

func TestListOwnBusinesses(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, token, "Shop A", "a@example.com")
	createBusinessFor(t, e, token, "Shop B", "b@example.com")

	otherToken, _ := registerUser(t, e, "Other", "other@example.com", "password", model.RoleBusiness)
	createBusinessFor(t, e, otherToken, "Other Shop", "c@example.com")

	rec := doJSON(t, e, http.MethodGet, "/api/businesses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list own status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	businesses, _ := body["businesses"].([]interface{})
	if len(businesses) != 2 {
		t.Errorf("own businesses = %d, want 2", len(businesses))
	}
}

func TestListAllBusinessesPublicAndPaginated(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	for i := 0; i < 5; i++ {
		createBusinessFor(t, e, token, fmt.Sprintf("Shop %d", i), fmt.Sprintf("shop%d@example.com", i))
	}

	rec := doJSON(t, e, http.MethodGet, "/api/businesses/all?page=1&limit=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public listing status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	businesses, _ := body["businesses"].([]interface{})
	if len(businesses) != 2 {
		t.Errorf("page size = %d, want 2", len(businesses))
	}
	if body["totalBusinesses"] != float64(5) {
		t.Errorf("totalBusinesses = %v, want 5", body["totalBusinesses"])
	}
	if body["totalPages"] != float64(3) {
		t.Errorf("totalPages = %v, want 3", body["totalPages"])
	}
	if body["currentPage"] != float64(1) {
		t.Errorf("currentPage = %v, want 1", body["currentPage"])
	}

	first, _ := businesses[0].(map[string]interface{})
	if _, leaked := first["user_id"]; leaked {
		t.Error("public listing must not expose owner ids")
	}
}

func TestListBusinessProducts(t *testing.T) {
	e := setupTest(t)

	token, _ := registerUser(t, e, "Owner", "owner@example.com", "password", model.RoleBusiness)
	businessID := createBusinessFor(t, e, token, "Shop", "shop@example.com")
	createProductFor(t, e, token, map[string]string{
		"name":     "Simit",
		"price":    "5",
		"quantity": "10",
		"category": "bakery",
	})

	rec := doJSON(t, e, http.MethodGet, fmt.Sprintf("/api/businesses/%d/products", businessID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("business products status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	products, _ := body["products"].([]interface{})
	if len(products) != 1 {
		t.Errorf("products = %d, want 1", len(products))
	}

	// Unknown business id answers with an empty list
	rec = doJSON(t, e, http.MethodGet, "/api/businesses/9999/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown business products status = %d, want 200", rec.Code)
	}
	body = decodeBody(t, rec)
	products, _ = body["products"].([]interface{})
	if len(products) != 0 {
		t.Errorf("unknown business products = %d, want 0", len(products))
	}
}
