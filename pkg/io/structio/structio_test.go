package structio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string  `yaml:"name" toml:"name" json:"name"`
	Items []int64 `yaml:"items" toml:"items" json:"items"`
}

func TestDecodeAllFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": "name: x\nitems: [1, 2]\n",
		"a.toml": "name = \"x\"\nitems = [1, 2]\n",
		"a.json": `{"name": "x", "items": [1, 2]}`,
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		var d doc
		if err := DecodeFile(p, &d); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if d.Name != "x" || len(d.Items) != 2 || d.Items[1] != 2 {
			t.Fatalf("%s: decoded %+v", name, d)
		}
	}
}

func TestDecodeUnknownField(t *testing.T) {
	for format, body := range map[string]string{
		YAML: "name: x\nbogus: 1\n",
		TOML: "name = \"x\"\nbogus = 1\n",
		JSON: `{"name": "x", "bogus": 1}`,
	} {
		var d doc
		if err := Decode(format, []byte(body), &d); err == nil {
			t.Fatalf("%s: expected unknown field error", format)
		}
	}
	if _, err := FormatOf("catalog.ini"); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}

func TestEncodeDecode(t *testing.T) {
	in := doc{Name: "superstore", Items: []int64{88, 241}}
	for _, format := range []string{YAML, TOML, JSON} {
		var buf bytes.Buffer
		if err := Encode(&buf, format, in); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		var out doc
		if err := Decode(format, buf.Bytes(), &out); err != nil {
			t.Fatalf("%s: %v\n%s", format, err, buf.String())
		}
		if out.Name != in.Name || len(out.Items) != 2 || out.Items[0] != 88 {
			t.Fatalf("%s: got %+v", format, out)
		}
	}
}
