package catalog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/testutil"
)

func newCode(id, code string, from, until time.Time) models.AccessCode {
	return models.AccessCode{
		ID: id, Code: code, Label: "test",
		ValidFrom: from, ValidUntil: until,
		CreatedAt: time.Now().UTC(),
	}
}

func seedCode(t *testing.T, db *catalog.DB, code models.AccessCode) {
	t.Helper()
	if err := db.InsertCode(code); err != nil {
		t.Fatalf("InsertCode: %v", err)
	}
}

func TestInsertAndGetCode(t *testing.T) {
	db := testutil.TestDB(t)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	seedCode(t, db, newCode("c1", "SUMMER26", from, from.AddDate(0, 3, 0)))

	c, err := db.GetCode("SUMMER26")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if c.ID != "c1" || c.Label != "test" {
		t.Errorf("code = %+v", c)
	}
	if !c.ValidFrom.Equal(from) {
		t.Errorf("valid_from = %v, want %v", c.ValidFrom, from)
	}
}

func TestInsertCode_DuplicateValue(t *testing.T) {
	db := testutil.TestDB(t)
	now := time.Now().UTC()
	seedCode(t, db, newCode("c1", "DUP", now, now.Add(time.Hour)))

	err := db.InsertCode(newCode("c2", "DUP", now, now.Add(time.Hour)))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestListCodes_NewestFirst(t *testing.T) {
	db := testutil.TestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newCode("c1", "OLD", base, base.Add(time.Hour))
	older.CreatedAt = base
	newer := newCode("c2", "NEW", base, base.Add(time.Hour))
	newer.CreatedAt = base.Add(24 * time.Hour)
	seedCode(t, db, older)
	seedCode(t, db, newer)

	codes, err := db.ListCodes()
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	if len(codes) != 2 || codes[0].ID != "c2" {
		t.Errorf("codes = %+v", codes)
	}
}

func TestDeleteCode(t *testing.T) {
	db := testutil.TestDB(t)
	now := time.Now().UTC()
	seedCode(t, db, newCode("c1", "GONE", now, now.Add(time.Hour)))

	if err := db.DeleteCode("c1"); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	if _, err := db.GetCode("GONE"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteCode("c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestValidateCode_Window(t *testing.T) {
	db := testutil.TestDB(t)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)
	seedCode(t, db, newCode("c1", "JUNE", from, until))

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", from.Add(-time.Minute), false},
		{"at start", from, true},
		{"inside", from.AddDate(0, 0, 14), true},
		{"at end", until, true},
		{"after window", until.Add(time.Minute), false},
	}
	for _, tc := range cases {
		ok, err := db.ValidateCode("JUNE", tc.at)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.want {
			t.Errorf("%s: valid = %v, want %v", tc.name, ok, tc.want)
		}
	}
}

func TestValidateCode_UnknownIsInvalidNotError(t *testing.T) {
	db := testutil.TestDB(t)
	ok, err := db.ValidateCode("NOPE", time.Now())
	if err != nil {
		t.Fatalf("ValidateCode: %v", err)
	}
	if ok {
		t.Error("unknown code reported valid")
	}
}
