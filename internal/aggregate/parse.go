package aggregate

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Metrics are the four test figures of a run, kept verbatim as the
// program printed them. An empty field means the line was not found.
type Metrics struct {
	Time    string
	F1Score string
	AUC     string
	MeanIOU string
}

// metricKey identifies a metric line by name and scope.
type metricKey struct {
	name  string
	scope string
}

var scraped = map[metricKey]func(m *Metrics, v string){
	{"time", "mean"}:       func(m *Metrics, v string) { m.Time = v },
	{"F1-score", "global"}: func(m *Metrics, v string) { m.F1Score = v },
	{"AUC", "global"}:      func(m *Metrics, v string) { m.AUC = v },
	{"IOU", "global"}:      func(m *Metrics, v string) { m.MeanIOU = v },
}

const maxLineBytes = 16 * 1024 * 1024

// ParseLog scans a log for `TEST,<metric>,<scope>,<value>` lines. When a
// metric appears more than once the last occurrence wins. Only read errors
// are returned; absent metrics stay empty.
func ParseLog(r io.Reader) (Metrics, error) {
	var m Metrics
	err := parseInto(&m, r)
	return m, err
}

func parseInto(m *Metrics, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "TEST,") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			continue
		}
		key := metricKey{name: strings.TrimSpace(fields[1]), scope: strings.TrimSpace(fields[2])}
		if assign, ok := scraped[key]; ok {
			assign(m, strings.TrimSpace(fields[3]))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning log: %w", err)
	}
	return nil
}
