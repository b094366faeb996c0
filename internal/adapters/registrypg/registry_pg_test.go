package registrypg

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestActiveDistributors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, credential_material, active FROM distributors")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "credential_material", "active"}).
			AddRow(1, "pub1|sec1", true).
			AddRow(2, "pub2|sec2", false))

	reg := New(db)
	infos, err := reg.ActiveDistributors(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(infos))
	}
	if infos[0].ID != 1 || infos[0].CredentialMaterial != "pub1|sec1" || !infos[0].Active {
		t.Fatalf("unexpected first row: %+v", infos[0])
	}
	if infos[1].ID != 2 || infos[1].Active {
		t.Fatalf("unexpected second row: %+v", infos[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActiveDistributorsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, credential_material, active FROM distributors")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "credential_material", "active"}))

	reg := New(db)
	infos, err := reg.ActiveDistributors(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected zero rows, got %d", len(infos))
	}
}
