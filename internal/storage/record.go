package storage

import (
	"capture-relay/internal/capture"
	"capture-relay/internal/geoip"
)

// Record is the persisted projection of a captured request.
type Record struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Timestamp string            `json:"timestamp"`
	Headers   map[string]string `json:"headers"`
	Body      *string           `json:"body"`
	IPAddress string            `json:"ipAddress"`
	IPInfo    *geoip.Info       `json:"ipInfo"`

	host string
	path string
}

func NewRecord(req *capture.Request, info *geoip.Info) *Record {
	rec := &Record{
		Method:    req.Method,
		URL:       req.URL,
		Timestamp: req.Timestamp(),
		Headers:   req.Headers,
		IPAddress: req.ClientIP,
		IPInfo:    info,
		host:      req.Host,
		path:      req.Path,
	}
	if req.HasBody() {
		body := req.Body
		rec.Body = &body
	}
	return rec
}
