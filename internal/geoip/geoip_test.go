package geoip

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"capture-relay/internal/config"
)

func names(en string) mmdbtype.Map {
	return mmdbtype.Map{"en": mmdbtype.String(en)}
}

// writeCityDB writes a one-network City database covering 203.0.113.0/24.
func writeCityDB(t *testing.T) string {
	t.Helper()

	w, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            "GeoIP2-City",
		RecordSize:              28,
		IncludeReservedNetworks: true,
	})
	if err != nil {
		t.Fatalf("new mmdb writer: %v", err)
	}

	_, network, err := net.ParseCIDR("203.0.113.0/24")
	if err != nil {
		t.Fatal(err)
	}
	record := mmdbtype.Map{
		"country": mmdbtype.Map{
			"iso_code": mmdbtype.String("DE"),
			"names":    names("Germany"),
		},
		"subdivisions": mmdbtype.Slice{
			mmdbtype.Map{
				"iso_code": mmdbtype.String("BE"),
				"names":    names("Land Berlin"),
			},
		},
		"city": mmdbtype.Map{"names": names("Berlin")},
		"location": mmdbtype.Map{
			"latitude":  mmdbtype.Float64(52.52),
			"longitude": mmdbtype.Float64(13.405),
			"time_zone": mmdbtype.String("Europe/Berlin"),
		},
		"postal": mmdbtype.Map{"code": mmdbtype.String("10117")},
	}
	if err := w.Insert(network, record); err != nil {
		t.Fatalf("insert network: %v", err)
	}

	path := filepath.Join(t.TempDir(), "city.mmdb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := w.WriteTo(f); err != nil {
		t.Fatalf("write mmdb: %v", err)
	}
	return path
}

func TestResolverLookup(t *testing.T) {
	r, err := NewResolver(writeCityDB(t))
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}
	defer r.Close()

	info, err := r.Lookup(context.Background(), " 203.0.113.5 ")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}

	want := Info{
		Status:      "success",
		Country:     "Germany",
		CountryCode: "DE",
		Region:      "BE",
		RegionName:  "Land Berlin",
		City:        "Berlin",
		Zip:         "10117",
		Lat:         52.52,
		Lon:         13.405,
		Timezone:    "Europe/Berlin",
		Query:       "203.0.113.5",
	}
	if *info != want {
		t.Errorf("Lookup = %+v, want %+v", *info, want)
	}
}

func TestResolverLookupMisses(t *testing.T) {
	r, err := NewResolver(writeCityDB(t))
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}
	defer r.Close()

	if _, err := r.Lookup(context.Background(), "198.51.100.7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("address without record: err = %v, want ErrNotFound", err)
	}
	for _, ip := range []string{"unknown", "", "203.0.113"} {
		if info, err := r.Lookup(context.Background(), ip); err == nil {
			t.Errorf("Lookup(%q) = %+v, want an error", ip, info)
		}
	}
}

func TestNewUsesDatabaseAndClosesOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{GeoIPDBPath: writeCityDB(t), GeoIPAPIURL: "http://ip-api.com/json"}

	locator, err := New(lc, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resolver, ok := locator.(*Resolver)
	if !ok {
		t.Fatalf("New returned %T, want *Resolver", locator)
	}

	lc.RequireStart()
	if _, err := resolver.Lookup(context.Background(), "203.0.113.5"); err != nil {
		t.Fatalf("Lookup while running: %v", err)
	}
	lc.RequireStop()

	if _, err := resolver.Lookup(context.Background(), "203.0.113.5"); err == nil {
		t.Error("Lookup after stop should fail")
	}
}

func TestNewWithoutDatabaseUsesAPI(t *testing.T) {
	locator, err := New(fxtest.NewLifecycle(t), config.Config{GeoIPAPIURL: "http://ip-api.com/json"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := locator.(*APIClient); !ok {
		t.Errorf("New returned %T, want *APIClient", locator)
	}
}

func TestNewBadDatabasePath(t *testing.T) {
	cfg := config.Config{GeoIPDBPath: filepath.Join(t.TempDir(), "missing.mmdb")}
	if _, err := New(fxtest.NewLifecycle(t), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected an error for a missing database")
	}
}

func TestResolverWithoutDatabase(t *testing.T) {
	var r *Resolver
	if _, err := r.Lookup(context.Background(), "203.0.113.5"); err == nil {
		t.Fatal("expected an error from a nil resolver")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil resolver: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected an error for a missing database")
	}
}
