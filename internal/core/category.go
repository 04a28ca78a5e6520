package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	CategoryDefault CategoryKind = "default"
	CategoryCustom  CategoryKind = "custom"
)

type (
	CategoryKind string

	// CategoryRef identifies a category as either shared-default or
	// user-custom. It crosses the API and database boundaries as
	// "default_<id>" / "custom_<id>" strings; inside the program only this
	// struct exists.
	CategoryRef struct {
		Kind CategoryKind
		ID   int64
	}

	Category struct {
		Ref         CategoryRef
		Name        string
		Icon        string
		Color       string
		DailyBudget Money // effective budget; zero means none
		CreatedAt   time.Time
	}
)

// DefaultRef builds a reference to a shared default category.
func DefaultRef(id int64) CategoryRef {
	return CategoryRef{Kind: CategoryDefault, ID: id}
}

// CustomRef builds a reference to a user-owned custom category.
func CustomRef(id int64) CategoryRef {
	return CategoryRef{Kind: CategoryCustom, ID: id}
}

// ParseCategoryRef parses the wire/storage form "default_<id>" or
// "custom_<id>". Anything else is rejected; there is no bare-integer legacy
// form.
func ParseCategoryRef(s string) (CategoryRef, error) {
	kind, rawID, ok := strings.Cut(s, "_")
	if !ok {
		return CategoryRef{}, NewValidationError("Invalid category", "category_id")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return CategoryRef{}, NewValidationError("Invalid category", "category_id")
	}
	switch CategoryKind(kind) {
	case CategoryDefault, CategoryCustom:
		return CategoryRef{Kind: CategoryKind(kind), ID: id}, nil
	}
	return CategoryRef{}, NewValidationError("Invalid category", "category_id")
}

// String renders the wire/storage form.
func (r CategoryRef) String() string {
	return string(r.Kind) + "_" + strconv.FormatInt(r.ID, 10)
}

func (r CategoryRef) IsDefault() bool {
	return r.Kind == CategoryDefault
}

func (r CategoryRef) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

func (c Category) IsDefault() bool {
	return c.Ref.IsDefault()
}

// DefaultCatalog is the seeded set of shared categories. It doubles as the
// fallback served when the category listing cannot reach the database.
var DefaultCatalog = []Category{
	{Ref: DefaultRef(1), Name: "Food & Dining", Icon: "🍽️", Color: "#FF6B6B"},
	{Ref: DefaultRef(2), Name: "Transportation", Icon: "🚗", Color: "#4ECDC4"},
	{Ref: DefaultRef(3), Name: "Shopping", Icon: "🛒", Color: "#45B7D1"},
	{Ref: DefaultRef(4), Name: "Health & Fitness", Icon: "💪", Color: "#96CEB4"},
	{Ref: DefaultRef(5), Name: "Entertainment", Icon: "🎬", Color: "#FECA57"},
	{Ref: DefaultRef(6), Name: "Bills & Utilities", Icon: "⚡", Color: "#FF9FF3"},
	{Ref: DefaultRef(7), Name: "Other", Icon: "📝", Color: "#6B7280"},
}
