package superstore

import (
	"path/filepath"
	"testing"

	"github.com/wdm0006/smudge/pkg/catalog"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

func TestSchemaShape(t *testing.T) {
	s := Schema()
	if len(s.Columns) != 23 {
		t.Fatalf("expected 23 declared columns, got %d", len(s.Columns))
	}
	key, ok := s.Lookup(KeyColumn)
	if !ok || key.Nullable || key.Type != sm.KindInt {
		t.Fatalf("bad key column %+v", key)
	}
	for name, want := range map[string]sm.Kind{
		"Order Date": sm.KindTime, "Ship Date": sm.KindTime,
		"Quantity": sm.KindInt, "Sales": sm.KindFloat, "Postal Code": sm.KindString,
	} {
		if cs, _ := s.Lookup(name); cs.Type != want {
			t.Fatalf("%s: got %v want %v", name, cs.Type, want)
		}
	}
	s.Columns[0].Name = "changed"
	if Columns[0].Name != KeyColumn {
		t.Fatal("Schema must return a copy")
	}
}

// Every column the default catalog touches is declared with a kind the
// defect can work on.
func TestCatalogColumnsDeclared(t *testing.T) {
	s := Schema()
	for _, d := range catalog.Default().Defects {
		if _, ok := s.Lookup(d.Column); !ok {
			t.Fatalf("catalog column %q not declared", d.Column)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	p := DefaultPaths("datasets")
	if p.Prepared != filepath.Join("datasets", "superstore_prep.csv") || p.Activity != filepath.Join("datasets", "superstore_activity_dataset.csv") {
		t.Fatalf("paths = %+v", p)
	}
}
