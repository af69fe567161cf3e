package pulse

import (
	"encoding/json"
	"strings"

	"pulsebridge/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// DeviceStatus merges the device metadata page with the orb summary.
// State normally carries one of "Disarmed", "Armed Away", "Armed Stay"
// or "Status Unavailable", but the portal is not a validated enum so it
// stays free text.
type DeviceStatus struct {
	Name   string
	Make   string
	Type   string
	State  string
	Status string
}

// ZoneRecord is one monitored sensor. State holds the portal's icon
// code (e.g. devStatOK, devStatOpen, devStatMotion).
type ZoneRecord struct {
	Id    string
	Name  string
	Tags  string
	State string
}

type deviceInfo struct {
	Name string
	Make string
	Type string
}

func extractDeviceInfo(doc *goquery.Document) deviceInfo {
	return deviceInfo{
		Name: htmlutil.LabeledCellValue(doc, "Name"),
		Make: htmlutil.LabeledCellValue(doc, "Manufacturer"),
		Type: htmlutil.LabeledCellValue(doc, "Type"),
	}
}

// extractOrbText splits the orb summary ("<state>. <status>.") on its
// first period. Text without a period is all state, empty text yields
// empty fields.
func extractOrbText(doc *goquery.Document) (state, status string) {
	text := htmlutil.CleanText(doc.Find("#divOrbTextSummary").Text())
	if text == "" {
		return "", ""
	}
	idx := strings.IndexByte(text, '.')
	if idx < 0 {
		return text, ""
	}
	state = strings.TrimSpace(text[:idx])
	status = strings.TrimSpace(text[idx+1:])
	status = strings.TrimSuffix(status, ".")
	return state, status
}

// extractZones keeps only the "sensor-" namespace, everything else the
// home view reports (panels, gateways, cameras) is discarded.
func extractZones(body []byte) ([]ZoneRecord, error) {
	var payload struct {
		Items []struct {
			Id    string `json:"id"`
			Name  string `json:"name"`
			Tags  string `json:"tags"`
			State struct {
				Icon string `json:"icon"`
			} `json:"state"`
		} `json:"items"`
	}
	err := json.Unmarshal(body, &payload)
	if err != nil {
		return nil, err
	}

	var zones []ZoneRecord
	for _, item := range payload.Items {
		if !strings.Contains(item.Id, "sensor-") {
			continue
		}
		zones = append(zones, ZoneRecord{
			Id:    item.Id,
			Name:  item.Name,
			Tags:  item.Tags,
			State: item.State.Icon,
		})
	}
	return zones, nil
}

// extractForceArmToken pulls the sat token out of the Arm Anyway
// button's click handler. An empty result means the portal armed
// without asking for confirmation.
func extractForceArmToken(doc *goquery.Document) string {
	token := ""
	doc.Find("input[id^=arm_button]").EachWithBreak(func(_ int, button *goquery.Selection) bool {
		onclick, ok := button.Attr("onclick")
		if !ok {
			return true
		}
		token = satToken(onclick)
		return token == ""
	})
	return token
}

func satToken(handler string) string {
	idx := strings.Index(handler, "sat=")
	if idx < 0 {
		return ""
	}
	rest := handler[idx+len("sat="):]
	if amp := strings.IndexByte(rest, '&'); amp >= 0 {
		rest = rest[:amp]
	}
	return rest
}
