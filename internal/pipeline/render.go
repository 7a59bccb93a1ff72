package pipeline

import (
	"fmt"
	"strings"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
)

// RenderDigest renders the pending alerts into one notification body.
// Each alert becomes a block of "<field>: <value>" lines in store-schema
// order; blocks keep encounter order and are separated by a literal "==="
// delimiter line.
func RenderDigest(alerts []alert.Alert) string {
	blocks := make([]string, 0, len(alerts))
	for _, a := range alerts {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("alert_id: %s\n", a.ID))
		sb.WriteString(fmt.Sprintf("url: %s\n", a.URL))
		sb.WriteString(fmt.Sprintf("title: %s\n", a.Title))
		sb.WriteString(fmt.Sprintf("description_html: %s\n", a.Description))
		sb.WriteString(fmt.Sprintf("start_date: %s\n", a.StartDate))
		sb.WriteString(fmt.Sprintf("end_date: %s\n", a.EndDate))
		sb.WriteString(fmt.Sprintf("l1_line_impacted: %t\n", a.Relevant))
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "===\n")
}
