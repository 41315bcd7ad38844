package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const Header = "Commit Hash,Test Date,Environment,Test,Status,Duration"

// MockClient serves a generated feed so the service can run without network access.
type MockClient struct {
	data []byte
}

func NewMockClient() *MockClient {
	c := &MockClient{}
	c.generateMockData(time.Now().UTC())
	return c
}

// NewStaticClient serves the given feed content as is.
func NewStaticClient(data string) *MockClient {
	return &MockClient{data: []byte(data)}
}

func (c *MockClient) generateMockData(now time.Time) {
	environments := []string{"Docker_Linux", "KVM_Linux", "Docker_macOS"}
	tests := []string{"TestFunctional", "TestAddons", "TestStartStop"}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	buf.WriteString(Header + "\n")

	for day := 13; day >= 0; day-- {
		date := today.AddDate(0, 0, -day).Format("2006-01-02")
		for run := 0; run < 3; run++ {
			commit := fmt.Sprintf("%07x", (day*31+run*7+1)*0x1f3d5)
			for e, env := range environments {
				for t, test := range tests {
					status := "Passed"
					i := day*9 + run*5 + e*3 + t
					switch {
					case i%7 == 0:
						status = "Failed"
					case i%11 == 0:
						status = "Skipped"
					}
					duration := 30 + float64((i*37)%90) + float64(t)*12.5

					// Repeated columns are left empty, as in the published feed.
					fields := []string{commit, date, env, test, status, fmt.Sprintf("%.2f", duration)}
					if e > 0 || t > 0 {
						fields[0], fields[1] = "", ""
					}
					if t > 0 {
						fields[2] = ""
					}
					buf.WriteString(strings.Join(fields, ",") + "\n")
				}
			}
		}
	}
	c.data = buf.Bytes()
}

func (c *MockClient) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: "mock", Err: err}
	}
	return io.NopCloser(bytes.NewReader(c.data)), nil
}
