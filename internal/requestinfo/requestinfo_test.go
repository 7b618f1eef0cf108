package requestinfo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	surfer "github.com/avct/uasurfer"
)

const (
	chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"
	iPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_3_1 like Mac OS X) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/17.3.1 Mobile/15E148 Safari/604.1"
	googlebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseUA_Devices(t *testing.T) {
	cases := []struct {
		ua, device string
	}{
		{chromeMac, "Desktop"},
		{iPhone, "Mobile"},
		{googlebot, "Bot"},
		{"", "Other"},
	}
	for _, tc := range cases {
		if got := parseUA(tc.ua, "").Device; got != tc.device {
			t.Errorf("device(%q) = %q, want %q", tc.ua, got, tc.device)
		}
	}
}

func TestParseUA_BrowserFields(t *testing.T) {
	u := parseUA(chromeMac, "en-GB,en;q=0.9")
	if u.Browser != "Chrome" || u.IsBot {
		t.Fatalf("ua = %+v", u)
	}
	if u.PrimaryLang != "en-gb" {
		t.Fatalf("lang = %q", u.PrimaryLang)
	}
}

func TestVersionToString(t *testing.T) {
	cases := map[surfer.Version]string{
		{}:                              "",
		{Major: 17}:                     "17",
		{Major: 17, Minor: 3}:           "17.3",
		{Major: 17, Minor: 3, Patch: 1}: "17.3.1",
	}
	for v, want := range cases {
		if got := versionToString(v); got != want {
			t.Errorf("versionToString(%+v) = %q, want %q", v, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5123"
	if got := clientIP(r).String(); got != "10.0.0.9" {
		t.Fatalf("remote addr ip = %s", got)
	}

	r.Header.Set("X-Real-Ip", "192.0.2.4")
	if got := clientIP(r).String(); got != "192.0.2.4" {
		t.Fatalf("x-real-ip = %s", got)
	}

	r.Header.Set("X-Forwarded-For", "garbage, 198.51.100.7, 10.0.0.1")
	if got := clientIP(r).String(); got != "198.51.100.7" {
		t.Fatalf("x-forwarded-for = %s", got)
	}
}

func TestEnrich_StoresInfo(t *testing.T) {
	var seen *RequestInfo
	h := Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/scanreports/?filter=archived", nil)
	req.Header.Set("User-Agent", chromeMac)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == nil || seen.UA.Device != "Desktop" || seen.URL.RawQuery != "filter=archived" {
		t.Fatalf("info = %+v", seen)
	}
	if FromContext(req.Context()) != nil {
		t.Fatalf("outer request context modified")
	}
}

func TestInitGeo_MissingDatabase(t *testing.T) {
	CloseGeo()
	if err := InitGeo(filepath.Join(t.TempDir(), "GeoLite2-City.mmdb")); err == nil {
		t.Fatalf("missing database accepted")
	}
	if geoReader.Load() != nil {
		t.Fatalf("reader installed after a failed open")
	}
}

func TestLookupGeo_WithoutDatabase(t *testing.T) {
	CloseGeo()
	ip := net.ParseIP("81.2.69.160")
	g := lookupGeo(ip)
	if !g.IP.Equal(ip) || g.CountryISO != "" || g.City != "" {
		t.Fatalf("geo = %+v", g)
	}
	if g := lookupGeo(nil); g.IP != nil {
		t.Fatalf("nil ip produced %+v", g)
	}
}

func TestEnrich_GeoWithoutDatabase(t *testing.T) {
	CloseGeo()
	var seen *RequestInfo
	h := Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.Geo.IP.String() != "198.51.100.7" || seen.Geo.CountryISO != "" {
		t.Fatalf("info = %+v", seen)
	}
}
