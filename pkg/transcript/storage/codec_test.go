package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/transcript"
)

func TestCompressBody(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		wantCodec bodyCodec
	}{
		{name: "empty", body: nil, wantCodec: bodyRaw},
		{name: "small", body: []byte("OK"), wantCodec: bodyRaw},
		{name: "repetitive", body: bytes.Repeat([]byte(`{"read_rows":"1"},`), 100), wantCodec: bodyZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, codec := compressBody(tt.body)
			if codec != tt.wantCodec {
				t.Fatalf("codec = %d, want %d", codec, tt.wantCodec)
			}
			got, err := decompressBody(stored, codec, len(tt.body))
			if err != nil {
				t.Fatalf("decompressBody() failed: %v", err)
			}
			if !bytes.Equal(got, tt.body) {
				t.Errorf("round trip changed the body")
			}
		})
	}
}

func TestDecompressBody_Errors(t *testing.T) {
	if _, err := decompressBody([]byte("abc"), bodyRaw, 4); err == nil {
		t.Error("size mismatch was not detected")
	}
	if _, err := decompressBody([]byte("not zstd"), bodyZstd, 8); err == nil {
		t.Error("corrupt zstd data was not detected")
	}
	if _, err := decompressBody(nil, bodyCodec(9), 0); err == nil {
		t.Error("unknown codec was not rejected")
	}
}

func TestSQLiteStorage_CompressedBodyRoundTrip(t *testing.T) {
	store, err := NewSQLiteStorage()
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	body := []byte(strings.Repeat("1\tfoo\t2024-01-01\n", 500))
	record := &transcript.Record{
		Fingerprint: ngram.New("SELECT * FROM big FORMAT TabSeparated"),
		Body:        body,
		Meta:        transcript.ResponseMeta{StatusCode: 200},
	}
	if _, err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var storedSize int
	if err := store.db.QueryRowContext(ctx, `SELECT length(body) FROM records WHERE idx = 0`).Scan(&storedSize); err != nil {
		t.Fatalf("query stored size: %v", err)
	}
	if storedSize >= len(body) {
		t.Errorf("stored body is %d bytes, want less than %d", storedSize, len(body))
	}

	got, err := store.BestMatch(ctx, ngram.New("SELECT * FROM big FORMAT TabSeparated"))
	if err != nil {
		t.Fatalf("BestMatch() failed: %v", err)
	}
	if !bytes.Equal(got.Body, body) {
		t.Error("BestMatch() returned a different body")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	headers := []transcript.Header{
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "Set-Cookie", Value: "b=2"},
	}
	tokens := []string{"SELECT", "1", "FROM", "t"}

	data, err := encodeMeta(headers, tokens)
	if err != nil {
		t.Fatalf("encodeMeta() failed: %v", err)
	}
	meta, err := decodeMeta(data)
	if err != nil {
		t.Fatalf("decodeMeta() failed: %v", err)
	}
	if len(meta.Headers) != 2 || meta.Headers[1].Value != "b=2" {
		t.Errorf("Headers = %v", meta.Headers)
	}
	if strings.Join(meta.Tokens, " ") != "SELECT 1 FROM t" {
		t.Errorf("Tokens = %v", meta.Tokens)
	}
}
