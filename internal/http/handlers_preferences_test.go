package http

import (
	"net/http"
	"testing"
)

func TestDailyLimitEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "hazel@example.com")

	rr := doJSON(t, srv, http.MethodGet, "/api/preferences/daily-limit", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["daily_limit"] != 30.0 {
		t.Fatalf("default daily_limit = %v", body["daily_limit"])
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/preferences/daily-limit", `{"daily_limit":55.5}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("set status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["message"] != "Daily spending limit updated successfully" || body["daily_limit"] != 55.5 {
		t.Fatalf("set body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/preferences/daily-limit", "", cookie)
	if body := decodeBody(t, rr); body["daily_limit"] != 55.5 {
		t.Fatalf("updated daily_limit = %v", body["daily_limit"])
	}

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"missing value", `{}`, "daily_limit is required"},
		{"bad value", `{"daily_limit":"abc"}`, "daily_limit must be a valid number"},
		{"negative value", `{"daily_limit":-5}`, "daily_limit must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPut, "/api/preferences/daily-limit", tc.body, cookie)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body["error"] != tc.wantError || body["success"] != false {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestCategoryRequirementEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "sage@example.com")

	rr := doJSON(t, srv, http.MethodGet, "/api/preferences/category-requirement", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["require_categories"] != true {
		t.Fatalf("default require_categories = %v", body)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/preferences/category-requirement", `{"require_categories":false}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("set status = %d, body %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["message"] != "Category requirement disabled successfully" {
		t.Fatalf("set body = %v", body)
	}

	// Uncategorized spending is now allowed.
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":2,"description":"snack"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("uncategorized create status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/preferences/category-requirement", `{"require_categories":"yes"}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad type status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "require_categories must be a boolean" {
		t.Fatalf("bad type body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/preferences/category-requirement", `{}`, cookie)
	if body := decodeBody(t, rr); body["error"] != "require_categories is required" {
		t.Fatalf("missing value body = %v", body)
	}
}

func TestDateSimulationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "violet@example.com")

	rr := doJSON(t, srv, http.MethodGet, "/api/preferences/date-simulation", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["simulated_date"] != nil {
		t.Fatalf("initial simulated_date = %v", body["simulated_date"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/preferences/date-simulation", `{"date":"03/01/2024"}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "Invalid date format. Use YYYY-MM-DD" {
		t.Fatalf("bad date body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/preferences/date-simulation", `{}`, cookie)
	if body := decodeBody(t, rr); body["error"] != "date is required" {
		t.Fatalf("missing date body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/preferences/date-simulation", `{"date":"2024-03-01"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("enable status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["simulated_date"] != "2024-03-01" || body["message"] != "Date simulation enabled successfully" {
		t.Fatalf("enable body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/preferences/date-simulation", "", cookie)
	if body := decodeBody(t, rr); body["simulated_date"] != "2024-03-01" {
		t.Fatalf("simulated_date after enable = %v", body["simulated_date"])
	}

	// The whole API now lives on the simulated day.
	rr = doJSON(t, srv, http.MethodGet, "/api/rollover/current-budget", "", cookie)
	if body := decodeBody(t, rr); body["date"] != "2024-03-01" {
		t.Fatalf("current budget date = %v", body["date"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":3,"description":"tea","category_id":"default_1"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("simulated expense status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses", "", cookie)
	if list := decodeList(t, rr); len(list) != 1 {
		t.Fatalf("simulated day list = %d entries", len(list))
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/preferences/date-simulation", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["message"] != "Date simulation disabled successfully" {
		t.Fatalf("disable body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/preferences/date-simulation", "", cookie)
	if body := decodeBody(t, rr); body["simulated_date"] != nil {
		t.Fatalf("simulated_date after disable = %v", body["simulated_date"])
	}

	// Back on the real day the simulated expense is out of view.
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses", "", cookie)
	if list := decodeList(t, rr); len(list) != 0 {
		t.Fatalf("real day list = %d entries", len(list))
	}
}

func TestBudgetProjections(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "juniper@example.com")

	rr := doJSON(t, srv, http.MethodPut, "/api/preferences/daily-limit", `{"daily_limit":10}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("set limit status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":5,"description":"mulch","category_id":"default_1"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expense status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/preferences/budgets", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("projections status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["daily_limit"] != 10.0 {
		t.Fatalf("projections daily_limit = %v", body["daily_limit"])
	}

	weekly, _ := body["weekly"].(map[string]any)
	if weekly["budget"] != 70.0 || weekly["spent"] != 5.0 || weekly["percentage_used"] != 7.1 {
		t.Fatalf("weekly projection = %v", weekly)
	}
	monthly, _ := body["monthly"].(map[string]any)
	if monthly["budget"] != 300.0 || monthly["spent"] != 5.0 {
		t.Fatalf("monthly projection = %v", monthly)
	}
	yearly, _ := body["yearly"].(map[string]any)
	if yearly["budget"] != 3650.0 || yearly["spent"] != 5.0 {
		t.Fatalf("yearly projection = %v", yearly)
	}
}
