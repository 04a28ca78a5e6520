package http

import (
	"fmt"
	"net/http"
	"testing"

	"sprout/internal/core"
)

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "sprout@example.com")

	// Categories are required for fresh accounts.
	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":4.5,"description":"coffee"}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("uncategorized create status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["error"] != "Category is required" || body["field"] != "category_id" {
		t.Fatalf("uncategorized create body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":4.5,"description":"coffee","category_id":"default_1"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["success"] != true {
		t.Fatalf("create body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Fatalf("list length = %d, body %s", len(list), rr.Body.String())
	}
	first, _ := list[0].(map[string]any)
	if first["amount"] != 4.5 || first["description"] != "coffee" {
		t.Fatalf("listed expense = %v", first)
	}
	id := int64(first["id"].(float64))

	// Update replaces the whole row.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/expenses/%d", id), `{"amount":6,"description":"lunch","category_id":"default_2"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["message"] != "Expense updated successfully" {
		t.Fatalf("update body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/summary", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rr.Code)
	}
	summary := decodeBody(t, rr)
	if summary["daily_limit"] != 30.0 {
		t.Fatalf("summary daily_limit = %v", summary["daily_limit"])
	}
	if summary["balance"] != 24.0 {
		t.Fatalf("summary balance = %v", summary["balance"])
	}
	if summary["avg_7day"] != 29.14 {
		t.Fatalf("summary avg_7day = %v", summary["avg_7day"])
	}
	if summary["plant_state"] == "" || summary["plant_emoji"] == "" {
		t.Fatalf("summary plant fields = %v", summary)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["message"] != "Expense deleted successfully" {
		t.Fatalf("delete body = %v", body)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), "", cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}
	body = decodeBody(t, rr)
	if body["error"] != "Expense not found" || body["code"] != core.CodeNotFound {
		t.Fatalf("second delete body = %v", body)
	}
}

func TestExpenseValidation(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "clover@example.com")

	tests := []struct {
		name      string
		body      string
		status    int
		wantError string
	}{
		{"empty body", "", http.StatusBadRequest, "Please provide valid data."},
		{"malformed json", `{"amount":`, http.StatusBadRequest, "Please provide valid data."},
		{"empty object", `{}`, http.StatusBadRequest, "No data provided"},
		{"missing amount", `{"description":"tea"}`, http.StatusBadRequest, "Amount is required"},
		{"zero amount", `{"amount":0,"description":"tea","category_id":"default_1"}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"negative amount", `{"amount":-3,"description":"tea","category_id":"default_1"}`, http.StatusBadRequest, "Amount must be greater than 0"},
		{"string amount", `{"amount":"abc","description":"tea","category_id":"default_1"}`, http.StatusBadRequest, "Amount must be a valid number"},
		{"unknown category", `{"amount":2,"description":"tea","category_id":"custom_99"}`, http.StatusBadRequest, "Invalid category"},
		{"legacy category id", `{"amount":2,"description":"tea","category_id":"7"}`, http.StatusBadRequest, "Invalid category"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/expenses", tc.body, cookie)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d, body %s", rr.Code, tc.status, rr.Body.String())
			}
			if body := decodeBody(t, rr); body["error"] != tc.wantError {
				t.Fatalf("error = %v, want %q", body["error"], tc.wantError)
			}
		})
	}
}

func TestExpenseListDayOffset(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "willow@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":3,"description":"bus","category_id":"default_2"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	// Yesterday is empty.
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses?dayOffset=-1", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("offset list status = %d", rr.Code)
	}
	if list := decodeList(t, rr); len(list) != 0 {
		t.Fatalf("yesterday list length = %d", len(list))
	}

	// Garbage offsets are rejected, not defaulted.
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses?dayOffset=abc", "", cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad offset status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["code"] != core.CodeInvalidInput {
		t.Fatalf("bad offset body = %v", body)
	}
}

func TestHistoryGroupsByDay(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "basil@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", `{"amount":5,"description":"seeds","category_id":"default_1"}`, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/history?period=7", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	days := decodeList(t, rr)
	if len(days) != 1 {
		t.Fatalf("history days = %d, body %s", len(days), rr.Body.String())
	}
	day, _ := days[0].(map[string]any)
	if day["date"] != today().String() {
		t.Fatalf("history date = %v, want %s", day["date"], today())
	}
	expenses, _ := day["expenses"].([]any)
	if len(expenses) != 1 {
		t.Fatalf("history expenses = %d", len(expenses))
	}
	entry, _ := expenses[0].(map[string]any)
	category, _ := entry["category"].(map[string]any)
	if category["id"] != "default_1" || category["name"] != "Food & Dining" {
		t.Fatalf("history category = %v", category)
	}

	// Category filter that matches nothing.
	rr = doJSON(t, srv, http.MethodGet, "/api/history?period=7&category_id=default_5", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("filtered history status = %d", rr.Code)
	}
	if days := decodeList(t, rr); len(days) != 0 {
		t.Fatalf("filtered history days = %d", len(days))
	}
}

func TestHistoryDegradesToEmpty(t *testing.T) {
	srv := newTestServer(t)
	cookie := signup(t, srv, "poppy@example.com")

	// History never errors on bad input, it serves an empty feed.
	for _, path := range []string{
		"/api/history?dayOffset=abc",
		"/api/history?period=banana",
		"/api/history?category_id=not_a_ref",
	} {
		rr := doJSON(t, srv, http.MethodGet, path, "", cookie)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		if list := decodeList(t, rr); len(list) != 0 {
			t.Fatalf("%s returned %d days", path, len(list))
		}
	}
}
