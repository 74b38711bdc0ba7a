package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"capture-relay/internal/config"
)

var ErrNotFound = errors.New("geoip: no location for address")

// Info mirrors the ip-api.com JSON schema. The mmdb backend fills the subset it knows.
type Info struct {
	Status      string  `json:"status,omitempty"`
	Message     string  `json:"message,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	Region      string  `json:"region,omitempty"`
	RegionName  string  `json:"regionName,omitempty"`
	City        string  `json:"city,omitempty"`
	Zip         string  `json:"zip,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Org         string  `json:"org,omitempty"`
	AS          string  `json:"as,omitempty"`
	Query       string  `json:"query,omitempty"`
}

type Locator interface {
	Lookup(ctx context.Context, ip string) (*Info, error)
}

// New picks the local database when GEOIP_DB_PATH is set and ip-api otherwise.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Locator, error) {
	logger = logger.Named("geoip")

	if cfg.GeoIPDBPath == "" {
		logger.Info("using ip-api lookups", zap.String("endpoint", cfg.GeoIPAPIURL))
		return NewAPIClient(cfg.GeoIPAPIURL), nil
	}

	resolver, err := NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return resolver.Close()
		},
	})
	logger.Info("using local geoip database", zap.String("path", cfg.GeoIPDBPath))
	return resolver, nil
}

type Resolver struct {
	db *maxminddb.Reader
}

type mmdbCity struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
		TimeZone  string  `maxminddb:"time_zone"`
	} `maxminddb:"location"`
	Postal struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"postal"`
}

func NewResolver(path string) (*Resolver, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Lookup(_ context.Context, ipStr string) (*Info, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("geoip: database not loaded")
	}
	parsed := net.ParseIP(strings.TrimSpace(ipStr))
	if parsed == nil {
		return nil, fmt.Errorf("geoip: invalid address %q", ipStr)
	}

	var record mmdbCity
	if err := r.db.Lookup(parsed, &record); err != nil {
		return nil, fmt.Errorf("geoip lookup %s: %w", ipStr, err)
	}

	info := &Info{
		Status:      "success",
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.ISOCode,
		City:        record.City.Names["en"],
		Zip:         record.Postal.Code,
		Lat:         record.Location.Latitude,
		Lon:         record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
		Query:       parsed.String(),
	}
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].ISOCode
		info.RegionName = record.Subdivisions[0].Names["en"]
	}
	if info.Country == "" && info.City == "" {
		return nil, ErrNotFound
	}
	return info, nil
}

// Close releases the database. Lookups after Close fail.
func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	db := r.db
	r.db = nil
	return db.Close()
}
