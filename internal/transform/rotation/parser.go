package rotation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rotationwatch/pkg/models"
)

// Parse converts a rotation event payload into a normalized
// ActivityRecord. Payloads come from the rotation service's event bus
// and vary slightly in shape, so lookups try several paths.
func Parse(data []byte) (*models.ActivityRecord, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	activity := &models.ActivityRecord{}

	activity.OperationID = getString(raw, "operation_id", "operation.id", "op_id")
	if activity.OperationID == "" {
		return nil, fmt.Errorf("rotation event missing operation_id")
	}

	if ts := getString(raw, "ts", "@timestamp", "timestamp"); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			activity.Timestamp = t
		}
	}

	activity.UserID = getString(raw, "user_id", "user.id")
	activity.SourceIP = getString(raw, "source_ip", "metadata.source_ip", "client.ip")
	activity.Reason = models.RotationReason(getString(raw, "reason", "rotation_reason"))
	activity.Success = getBool(raw, "success")
	activity.RiskScore = getFloat(raw, "risk_score", "metadata.risk_score")

	activity.Metadata = models.SecurityMetadata{
		SourceIP:          activity.SourceIP,
		UserAgent:         getString(raw, "metadata.user_agent", "user_agent"),
		DeviceFingerprint: getString(raw, "metadata.device_fingerprint", "device_fingerprint"),
		AuthMethod:        getString(raw, "metadata.auth_method", "auth_method"),
		RiskScore:         activity.RiskScore,
	}

	country := getString(raw, "metadata.geolocation.country", "geolocation.country", "country")
	vpn := getBool(raw, "metadata.geolocation.vpn_or_proxy", "geolocation.vpn_or_proxy")
	if country != "" || vpn {
		activity.Metadata.Geolocation = &models.Geolocation{
			Country:    country,
			Region:     getString(raw, "metadata.geolocation.region", "geolocation.region"),
			City:       getString(raw, "metadata.geolocation.city", "geolocation.city"),
			VPNOrProxy: vpn,
		}
	}

	return activity, nil
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				return val
			case fmt.Stringer:
				return val.String()
			case float64:
				if val == float64(int64(val)) {
					return fmt.Sprintf("%d", int64(val))
				}
				return fmt.Sprintf("%f", val)
			}
		}
	}
	return ""
}

func getFloat(root map[string]interface{}, paths ...string) float64 {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case float64:
				return val
			case int:
				return float64(val)
			case string:
				var parsed float64
				if _, err := fmt.Sscanf(val, "%g", &parsed); err == nil {
					return parsed
				}
			}
		}
	}
	return 0
}

func getBool(root map[string]interface{}, paths ...string) bool {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case bool:
				return val
			case string:
				return strings.EqualFold(val, "true")
			}
		}
	}
	return false
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
