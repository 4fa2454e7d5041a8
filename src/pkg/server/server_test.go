package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
	echomw "price-catalog/src/pkg/echo-middleware"
	"price-catalog/src/pkg/ingest"
	"price-catalog/src/pkg/session"
)

const testToken = "test-token"

type memoryStore struct {
	mu      sync.Mutex
	saved   []catalog.Entry
	failing bool
}

func (s *memoryStore) Load(ctx context.Context) ([]catalog.Entry, *xerr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Entry(nil), s.saved...), nil
}

func (s *memoryStore) Save(ctx context.Context, entries []catalog.Entry) *xerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return xerr.NewError(errors.New("disk full"), "save catalog", len(entries))
	}
	s.saved = append([]catalog.Entry(nil), entries...)
	return nil
}

func TestMain(m *testing.M) {
	echomw.UpdateRateLimits(1000, 1000)
	os.Exit(m.Run())
}

type fixture struct {
	server  *Server
	catalog *catalog.Catalog
	store   *memoryStore
	uploads *session.PendingUploads
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := &memoryStore{}
	c := catalog.New(store)
	uploads := session.NewPendingUploads()
	s := New(DefaultValueConfig(), c, ingest.New(c, nil), uploads, testToken)
	return fixture{server: s, catalog: c, store: store, uploads: uploads}
}

func (f fixture) do(t *testing.T, method, target string, body []byte, headers map[string]string) (int, Reply) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var got Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("%s %s: body %q is not a reply: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, got
}

func authorized(extra map[string]string) map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + testToken,
		"Content-Type":  "application/json",
	}
	for name, value := range extra {
		headers[name] = value
	}
	return headers
}

func (f fixture) add(t *testing.T, item, price string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"item": item, "price": price})
	code, got := f.do(t, http.MethodPost, "/items", body, authorized(nil))
	if code != http.StatusOK {
		t.Fatalf("add %s: status %d, %v", item, code, got.Messages)
	}
}

func TestAddAndValue(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"item": "Dragon Sword", "price": "100k"}`)
	code, got := f.do(t, http.MethodPost, "/items", body, authorized(nil))
	if code != http.StatusOK || got.Messages[0] != "Added Dragon Sword with price 100k." {
		t.Fatalf("add: %d %v", code, got.Messages)
	}

	code, got = f.do(t, http.MethodGet, "/items/DRAGON%20sword", nil, nil)
	if code != http.StatusOK || got.Messages[0] != "The price of dragon sword is 100k." {
		t.Fatalf("value: %d %v", code, got.Messages)
	}

	code, got = f.do(t, http.MethodGet, "/items/shield", nil, nil)
	if code != http.StatusNotFound || got.Messages[0] != "Sorry, I don't have the price for shield." {
		t.Fatalf("missing value: %d %v", code, got.Messages)
	}
}

func TestAddRequiresToken(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"item": "a", "price": "1"}`)

	code, _ := f.do(t, http.MethodPost, "/items", body, map[string]string{"Content-Type": "application/json"})
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if f.catalog.Len() != 0 {
		t.Fatal("unauthorized add changed the catalog")
	}
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"item": "a"}`, `{"price": "1"}`, `{"item": " ", "price": "1"}`, `not json`} {
		code, _ := f.do(t, http.MethodPost, "/items", []byte(body), authorized(nil))
		if code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, code)
		}
	}
}

func TestAddSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failing = true

	code, got := f.do(t, http.MethodPost, "/items", []byte(`{"item": "a", "price": "1"}`), authorized(nil))
	if code != http.StatusInternalServerError || got.Messages[0] != saveFailedMessage {
		t.Fatalf("save failure: %d %v", code, got.Messages)
	}
	if _, found := f.catalog.Get("a"); found {
		t.Fatal("failed save left the entry in the catalog")
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Dragon Sword", "100k")
	f.add(t, "Iron Sword", "5k")
	f.add(t, "Shield", "1m")

	code, got := f.do(t, http.MethodGet, "/search?q=sword", nil, nil)
	if code != http.StatusOK || len(got.Messages) != 1 || got.Messages[0] != "dragon sword: 100k\niron sword: 5k\n" {
		t.Fatalf("search: %d %q", code, got.Messages)
	}

	code, got = f.do(t, http.MethodGet, "/search?q=bow", nil, nil)
	if code != http.StatusOK || got.Messages[0] != "No items matching 'bow'." {
		t.Fatalf("empty search: %d %v", code, got.Messages)
	}
}

func TestBudget(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "100")
	f.add(t, "b", "1k")
	f.add(t, "c", "2k")
	f.add(t, "d", "trade only")

	code, got := f.do(t, http.MethodGet, "/budget?amount=1.5k", nil, nil)
	if code != http.StatusOK || strings.Join(got.Messages, "") != "a: 100\nb: 1k\n" {
		t.Fatalf("budget: %d %q", code, got.Messages)
	}

	code, got = f.do(t, http.MethodGet, "/budget?amount=10", nil, nil)
	if code != http.StatusOK || got.Messages[0] != "No items found within budget 10." {
		t.Fatalf("empty budget: %d %v", code, got.Messages)
	}

	code, _ = f.do(t, http.MethodGet, "/budget?amount=lots", nil, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid budget: status = %d, want 400", code)
	}
}

func TestBudgetPaginates(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultValueConfig()
	cfg.MaxChunkLength = 100
	f.server.cfg = cfg

	entries := make([]catalog.Entry, 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, catalog.Entry{Key: strings.Repeat(string(rune('a'+i%26)), 3) + string(rune('0'+i/26)), RawPrice: "1k"})
	}
	if e := f.catalog.Merge(context.Background(), entries); e != nil {
		t.Fatalf("Merge: %v", e)
	}

	code, got := f.do(t, http.MethodGet, "/budget?amount=1k", nil, nil)
	if code != http.StatusOK || len(got.Messages) < 2 {
		t.Fatalf("budget: %d, %d chunks", code, len(got.Messages))
	}
	for _, chunk := range got.Messages {
		if len(chunk) > 100 {
			t.Fatalf("chunk of %d characters", len(chunk))
		}
	}
}

func TestUploadFlow(t *testing.T) {
	f := newFixture(t)
	user := map[string]string{echomw.HeaderUserID: "alice"}

	csvBody := []byte("Item,Price\nDragon Sword,100k\nShield,\nBow,2k\n")
	code, _ := f.do(t, http.MethodPost, "/uploads/prices.csv", csvBody, authorized(user))
	if code != http.StatusConflict {
		t.Fatalf("upload without announcement: status = %d, want 409", code)
	}

	code, _ = f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(user))
	if code != http.StatusOK || !f.uploads.IsPending("alice") {
		t.Fatalf("pending: status = %d", code)
	}

	code, got := f.do(t, http.MethodPost, "/uploads/prices.csv", csvBody, authorized(user))
	if code != http.StatusOK {
		t.Fatalf("upload: %d %v", code, got.Messages)
	}
	want := "Imported 2 items from 'prices.csv' (1 failed).\nrecord 2: malformed row\n"
	if strings.Join(got.Messages, "") != want {
		t.Fatalf("upload reply = %q, want %q", strings.Join(got.Messages, ""), want)
	}
	if f.uploads.IsPending("alice") {
		t.Fatal("pending flag not cleared")
	}
	if entry, found := f.catalog.Get("bow"); !found || entry.RawPrice != "2k" {
		t.Fatalf("bow = %+v, %v", entry, found)
	}
}

func TestUploadEncodedBodies(t *testing.T) {
	var gzipped bytes.Buffer
	gzipWriter := gzip.NewWriter(&gzipped)
	gzipWriter.Write([]byte("sword = 1k\nbroken line\n"))
	gzipWriter.Close()

	var compressed bytes.Buffer
	brotliWriter := brotli.NewWriter(&compressed)
	brotliWriter.Write([]byte("sword = 1k\nbroken line\n"))
	brotliWriter.Close()

	for encoding, body := range map[string][]byte{"gzip": gzipped.Bytes(), "br": compressed.Bytes()} {
		t.Run(encoding, func(t *testing.T) {
			f := newFixture(t)
			user := map[string]string{echomw.HeaderUserID: "bob"}
			f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(user))

			headers := authorized(map[string]string{echomw.HeaderUserID: "bob", "Content-Encoding": encoding})
			code, got := f.do(t, http.MethodPost, "/uploads/list.txt", body, headers)
			if code != http.StatusOK || got.Messages[0] != "Imported 1 items from 'list.txt' (0 failed).\n" {
				t.Fatalf("upload: %d %q", code, got.Messages)
			}
			if _, found := f.catalog.Get("sword"); !found {
				t.Fatal("sword not imported")
			}
		})
	}
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	user := map[string]string{echomw.HeaderUserID: "carol"}

	code, _ := f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(nil))
	if code != http.StatusBadRequest {
		t.Fatalf("pending without user: status = %d, want 400", code)
	}

	f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(user))
	code, _ = f.do(t, http.MethodPost, "/uploads/prices.pdf", []byte("x"), authorized(user))
	if code != http.StatusUnsupportedMediaType {
		t.Fatalf("pdf: status = %d, want 415", code)
	}
	if f.uploads.IsPending("carol") {
		t.Fatal("pending flag kept after a rejected upload")
	}

	f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(user))
	code, _ = f.do(t, http.MethodPost, "/uploads/prices.csv", nil, authorized(user))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("empty csv: status = %d, want 422", code)
	}

	cfg := DefaultValueConfig()
	cfg.MaxUploadBytes = 8
	f.server.cfg = cfg
	f.do(t, http.MethodPost, "/uploads/pending", nil, authorized(user))
	code, _ = f.do(t, http.MethodPost, "/uploads/list.txt", []byte("sword = 1k\n"), authorized(user))
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large upload: status = %d, want 413", code)
	}
}

type slowIngestor struct {
	calls atomic.Int32
}

func (s *slowIngestor) Ingest(ctx context.Context, kind ingest.SourceKind, raw []byte) (ingest.Result, *xerr.Error) {
	s.calls.Add(1)
	time.Sleep(100 * time.Millisecond)
	return ingest.Result{Kind: kind, Failures: []ingest.Failure{}}, nil
}

func TestUploadAnnouncementAdmitsOneConcurrentAttachment(t *testing.T) {
	store := &memoryStore{}
	uploads := session.NewPendingUploads()
	ingestor := &slowIngestor{}
	s := New(DefaultValueConfig(), catalog.New(store), ingestor, uploads, testToken)

	uploads.Mark("u1")

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/uploads/a.txt", strings.NewReader("a = 1\n"))
			for name, value := range authorized(map[string]string{echomw.HeaderUserID: "u1"}) {
				req.Header.Set(name, value)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	accepted, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			accepted++
		case http.StatusConflict:
			conflicts++
		}
	}
	if accepted != 1 || conflicts != 1 {
		t.Fatalf("status codes = %v, want one 200 and one 409", codes)
	}
	if calls := ingestor.calls.Load(); calls != 1 {
		t.Fatalf("ingest calls = %d, want 1", calls)
	}
}

func TestHealth(t *testing.T) {
	code, got := newFixture(t).do(t, http.MethodGet, "/healthz", nil, nil)
	if code != http.StatusOK || got.Messages[0] != "ok" {
		t.Fatalf("healthz: %d %v", code, got.Messages)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultValueConfig()
	cfg.Port = 0
	f.server.cfg = cfg

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *xerr.Error, 1)
	go func() { done <- f.server.Serve(ctx) }()
	cancel()

	if e := <-done; e != nil {
		t.Fatalf("Serve: %v", e)
	}
}
