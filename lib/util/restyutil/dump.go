package restyutil

import (
	"fmt"
	"myfuelportal-backend/internal/components/telemetry"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpResponses writes the status, headers and body of every response the
// client receives to output. Request bodies and queries are never written
// since they may hold credentials.
func DumpResponses(client *resty.Client, output InstrumentOutput) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)

		var out strings.Builder
		fmt.Fprintf(&out, "%s %s\n", res.Request.Method, telemetry.RedactUrl(res.Request.URL))
		fmt.Fprintf(&out, "%s\n", res.Status())
		for key, values := range res.Header() {
			if strings.EqualFold(key, "set-cookie") {
				fmt.Fprintf(&out, "%s: <%d redacted>\n", key, len(values))
				continue
			}
			fmt.Fprintf(&out, "%s: %s\n", key, strings.Join(values, ", "))
		}
		out.WriteString("\n")
		out.Write(res.Body())

		output.Write(fmt.Sprintf("%03d-%s.txt", id, strings.ToLower(res.Request.Method)), out.String())
		return nil
	})
}
