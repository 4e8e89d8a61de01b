package portal

import (
	"strings"

	v1 "github.com/f9-o/eportal/api/v1"
)

// Query string constants captured from the portal's redirect URL. The whole
// string travels as the value of one form field, so it is already
// percent-encoded once here and the nested url is encoded twice.
const (
	queryWlanACName = "NAS"
	querySSID       = "Ruijie"
	queryNASIP      = "172.17.10.10"
	queryType       = "wireless-v2-plain"
	queryURL        = "http%3A%252F%252Fwww.baidu.com%252F"
)

// EncodeQuery builds the portal's queryString for id.
func EncodeQuery(id v1.DeviceIdentity) string {
	var b strings.Builder
	pair := func(key, value string) {
		if b.Len() > 0 {
			b.WriteString("%26")
		}
		b.WriteString(key)
		b.WriteString("%3D")
		b.WriteString(value)
	}
	pair("wlanuserip", id.IP)
	pair("wlanacname", queryWlanACName)
	pair("ssid", querySSID)
	pair("nasip", queryNASIP)
	pair("mac", id.MAC)
	pair("t", queryType)
	pair("url", queryURL)
	return b.String()
}
