package congress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchListParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Path != "/bill" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "50" || q.Get("offset") != "0" {
			t.Errorf("unexpected pagination params: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bills": [
				{"number":"1234","type":"HR","congress":118,"title":"Student Loan Relief Act",
				 "originChamber":"House","introducedDate":"2023-03-01",
				 "latestAction":{"actionDate":"2023-03-02","text":"Referred to committee"}}
			],
			"pagination": {"count": 1}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	bills, total, err := c.FetchList(context.Background(), "", "both", 0, 50)
	if err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if total != 1 || len(bills) != 1 {
		t.Fatalf("expected 1 bill, got %d (total %d)", len(bills), total)
	}
	b := bills[0]
	if b.Number != "1234" || b.Type != "HR" || b.Congress.String() != "118" {
		t.Fatalf("unexpected bill: %+v", b)
	}
	if b.LatestAction == nil || b.LatestAction.Text != "Referred to committee" {
		t.Fatalf("latest action not parsed: %+v", b.LatestAction)
	}
}

func TestFetchListRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	_, _, err := c.FetchList(context.Background(), "", "", 0, 50)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetchListServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	_, _, err := c.FetchList(context.Background(), "", "", 0, 50)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", ue.StatusCode)
	}
}

func TestFetchListTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 20*time.Millisecond)
	_, _, err := c.FetchList(context.Background(), "", "", 0, 50)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFetchDetailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	_, err := c.FetchDetail(context.Background(), "hr9999-118")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchDetailBuildsPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bill":{"number":"1234","type":"HR","congress":118,
			"title":"Student Loan Relief Act","originChamber":"House",
			"sponsors":[{"fullName":"Rep. Doe, Jane [D-CA-12]"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	bill, err := c.FetchDetail(context.Background(), "hr1234-118")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if gotPath != "/bill/118/hr/1234" {
		t.Fatalf("unexpected detail path %s", gotPath)
	}
	if len(bill.Sponsors) != 1 || bill.Sponsors[0].FullName == "" {
		t.Fatalf("sponsor not parsed: %+v", bill.Sponsors)
	}
}

func TestFetchDetailMalformedID(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "k", time.Second)
	_, err := c.FetchDetail(context.Background(), "not-a-real-id-")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestSplitBillID(t *testing.T) {
	cases := []struct {
		in                          string
		congress, billType, number  string
		wantErr                     bool
	}{
		{"hr1234-118", "118", "hr", "1234", false},
		{"s284-119", "119", "s", "284", false},
		{"hjres45-118", "118", "hjres", "45", false},
		{"1234-118", "", "", "", true},
		{"hr-118", "", "", "", true},
		{"hr1234", "", "", "", true},
	}
	for _, tc := range cases {
		cn, bt, num, err := SplitBillID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if cn != tc.congress || bt != tc.billType || num != tc.number {
			t.Errorf("%s: got (%s,%s,%s)", tc.in, cn, bt, num)
		}
	}
}
