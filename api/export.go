package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
)

type exportRequest struct {
	Format    string `json:"format"`
	ChannelID string `json:"channelId"`
	StartTime *int64 `json:"startTime"`
	EndTime   *int64 `json:"endTime"`
	Filter    string `json:"filter"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entries := s.manager.GetBuffer(req.ChannelID, 0, 0)
	entries = filterByTime(entries, req.StartTime, req.EndTime)
	entries = filterByPattern(entries, req.Filter)

	switch req.Format {
	case "txt":
		writeExportTxt(w, entries)
	case "csv":
		writeExportCSV(w, entries)
	case "json":
		writeExportJSON(w, entries)
	default:
		writeBadRequest(w, fmt.Sprintf("unknown export format %q", req.Format))
	}
}

func filterByTime(entries []channel.LineEntry, start, end *int64) []channel.LineEntry {
	if start == nil && end == nil {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if start != nil && e.Timestamp < *start {
			continue
		}
		if end != nil && e.Timestamp > *end {
			continue
		}
		out = append(out, e)
	}
	return out
}

// filterByPattern applies filter as a case-insensitive regex, falling back
// to a plain case-sensitive substring match over Data if filter does not
// compile.
func filterByPattern(entries []channel.LineEntry, filter string) []channel.LineEntry {
	if filter == "" {
		return entries
	}

	var match func(string) bool
	if re, err := regexp.Compile("(?i)" + filter); err == nil {
		match = re.MatchString
	} else {
		match = func(data string) bool { return strings.Contains(data, filter) }
	}

	out := entries[:0:0]
	for _, e := range entries {
		if match(e.Data) {
			out = append(out, e)
		}
	}
	return out
}

func isoTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func writeExportTxt(w http.ResponseWriter, entries []channel.LineEntry) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, e := range entries {
		arrow := "<"
		if e.Direction == channel.DirectionTX {
			arrow = ">"
		}
		dir := "RX"
		if e.Direction == channel.DirectionTX {
			dir = "TX"
		}
		fmt.Fprintf(w, "[%s] %s %s %s\n", isoTime(e.Timestamp), dir, arrow, e.Data)
	}
}

func writeExportCSV(w http.ResponseWriter, entries []channel.LineEntry) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Timestamp", "ISO_Time", "Direction", "Data", "Mode"})
	for _, e := range entries {
		mode := string(e.Mode)
		if mode == "" {
			mode = string(channel.ModeASCII)
		}
		_ = cw.Write([]string{
			fmt.Sprintf("%d", e.Timestamp),
			isoTime(e.Timestamp),
			string(e.Direction),
			e.Data,
			mode,
		})
	}
	cw.Flush()
}

type exportJSONEntry struct {
	Timestamp int64            `json:"timestamp"`
	ISOTime   string           `json:"isoTime"`
	Direction channel.Direction `json:"direction"`
	Data      string           `json:"data"`
	Mode      channel.SendMode `json:"mode,omitempty"`
	Index     int64            `json:"index"`
}

func writeExportJSON(w http.ResponseWriter, entries []channel.LineEntry) {
	out := make([]exportJSONEntry, len(entries))
	for i, e := range entries {
		out[i] = exportJSONEntry{
			Timestamp: e.Timestamp,
			ISOTime:   isoTime(e.Timestamp),
			Direction: e.Direction,
			Data:      e.Data,
			Mode:      e.Mode,
			Index:     e.Index,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
