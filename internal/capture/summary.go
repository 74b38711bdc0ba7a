package capture

import (
	"fmt"
	"strings"

	"capture-relay/internal/geoip"
)

const missing = "N/A"

// Summary renders the chat message for one captured request. A nil info
// renders every location field as N/A.
func Summary(req *Request, info *geoip.Info) string {
	headers, err := PrettyJSON(req.Headers)
	if err != nil {
		headers = []byte(fmt.Sprintf("[Error encoding headers: %v]", err))
	}

	body := req.Body
	if body == "" {
		body = NoBody
	}

	var b strings.Builder
	b.WriteString("\n🔔 New Request Captured 🔔\n")
	fmt.Fprintf(&b, "📝 Method: %s\n", req.Method)
	fmt.Fprintf(&b, "🔗 URL: %s\n", req.URL)
	fmt.Fprintf(&b, "📅 Time: %s\n", req.Timestamp())
	fmt.Fprintf(&b, "🌐 IP: %s\n", req.ClientIP)
	fmt.Fprintf(&b, "📍 Location: %s\n", location(info))
	fmt.Fprintf(&b, "🏢 Network: %s\n", network(info))
	fmt.Fprintf(&b, "📡 ISP: %s\n", field(info, func(i *geoip.Info) string { return i.ISP }))
	b.WriteString("\n📋 Headers:\n")
	b.Write(headers)
	b.WriteString("\n\n📦 Body:\n")
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}

func location(info *geoip.Info) string {
	region := field(info, func(i *geoip.Info) string {
		if i.RegionName != "" {
			return i.RegionName
		}
		return i.Region
	})
	return strings.Join([]string{
		field(info, func(i *geoip.Info) string { return i.City }),
		region,
		field(info, func(i *geoip.Info) string { return i.Country }),
	}, ", ")
}

func network(info *geoip.Info) string {
	return field(info, func(i *geoip.Info) string { return i.AS }) +
		" / " +
		field(info, func(i *geoip.Info) string { return i.Org })
}

func field(info *geoip.Info, get func(*geoip.Info) string) string {
	if info == nil {
		return missing
	}
	if v := get(info); v != "" {
		return v
	}
	return missing
}
