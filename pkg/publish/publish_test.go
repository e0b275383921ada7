package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(b)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestKey(t *testing.T) {
	cases := map[[2]string]string{
		{"", "datasets/a.csv"}:         "a.csv",
		{"runs/42/", "datasets/a.csv"}: "runs/42/a.csv",
		{"/x", "b.parquet"}:            "x/b.parquet",
	}
	for in, want := range cases {
		if got := Key(in[0], in[1]); got != want {
			t.Fatalf("Key(%q,%q) = %q want %q", in[0], in[1], got, want)
		}
	}
}

func TestS3Publish(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "superstore_prep.csv", "Row ID\n1\n")
	b := writeFile(t, dir, "activity.jsonl", `{"Row ID":1}`+"\n")
	fp := &fakePutter{objects: map[string]string{}, types: map[string]string{}}
	p := &S3{client: fp, bucket: "lake"}

	keys, err := All(context.Background(), p, "smudge/run1", []string{a, "", filepath.Join(dir, "missing.csv"), b}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "smudge/run1/superstore_prep.csv" {
		t.Fatalf("keys = %v", keys)
	}
	if fp.objects["lake/smudge/run1/superstore_prep.csv"] != "Row ID\n1\n" {
		t.Fatalf("objects = %v", fp.objects)
	}
	if fp.types["lake/smudge/run1/activity.jsonl"] != "application/x-ndjson" {
		t.Fatalf("types = %v", fp.types)
	}

	fp.err = errors.New("access denied")
	if _, err := All(context.Background(), p, "", []string{a}, nil); !errors.Is(err, fp.err) {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
}

func TestDirPublish(t *testing.T) {
	src := writeFile(t, t.TempDir(), "superstore.csv", "x")
	root := t.TempDir()
	p, err := Open(context.Background(), Config{Driver: "dir", Dir: root})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := All(context.Background(), p, "share", []string{src}, nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(root, "share", "superstore.csv"))
	if err != nil || string(b) != "x" {
		t.Fatalf("copied = %q, %v", b, err)
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	if p, err := Open(ctx, Config{}); p != nil || err != nil {
		t.Fatalf("none driver = %v, %v", p, err)
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected unknown driver, got %v", err)
	}
	if _, err := Open(ctx, Config{Driver: "s3"}); err == nil {
		t.Fatal("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "dir"}); err == nil {
		t.Fatal("expected missing dir error")
	}
}
