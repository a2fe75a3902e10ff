package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/redial-io/redial-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	FramesByDirection map[log.Direction]int
	BytesByDirection  map[log.Direction]int
	Lifecycle         map[string]int
	Connections       map[string]*ConnectionStats
	Endpoints         map[string]int
	Episodes          int
	RetryTicks        int
	Exhausted         int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single socket handle.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Generation uint64
	Opened     bool
	CloseCode  int
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		FramesByDirection: make(map[log.Direction]int),
		BytesByDirection:  make(map[log.Direction]int),
		Lifecycle:         make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
		Endpoints:         make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	if event.Endpoint != "" {
		s.Endpoints[event.Endpoint]++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	var conn *ConnectionStats
	if event.ConnectionID != "" {
		var ok bool
		conn, ok = s.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{
				FirstSeen:  event.Timestamp,
				LastSeen:   event.Timestamp,
				Generation: event.Generation,
			}
			s.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
	}

	switch {
	case event.Frame != nil:
		s.FramesByDirection[event.Direction]++
		s.BytesByDirection[event.Direction] += event.Frame.Size
	case event.Lifecycle != nil:
		s.Lifecycle[event.Lifecycle.Event]++
		if conn != nil {
			switch event.Lifecycle.Event {
			case "open", "reconnect":
				conn.Opened = true
			case "close":
				conn.CloseCode = event.Lifecycle.Code
			}
		}
	case event.Retry != nil:
		if event.Retry.Episode > s.Episodes {
			s.Episodes = event.Retry.Episode
		}
		if event.Retry.Exhausted {
			s.Exhausted++
		} else {
			s.RetryTicks++
		}
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Redial Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	for _, ep := range sortedKeys(stats.Endpoints) {
		fmt.Fprintf(w, "Endpoint:     %s\n", ep)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerSocket, log.LayerTransport, log.LayerRetry} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryLifecycle, log.CategoryState, log.CategoryError, log.CategoryRetry} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Frames:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.FramesByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d (%d bytes)\n", dir.String()+":", count, stats.BytesByDirection[dir])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Lifecycle:")
	for _, name := range []string{"open", "reconnect", "close"} {
		fmt.Fprintf(w, "  %-12s %d\n", name+":", stats.Lifecycle[name])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Reconnect Episodes: %d\n", stats.Episodes)
	fmt.Fprintf(w, "Retry Ticks:        %d\n", stats.RetryTicks)
	if stats.Exhausted > 0 {
		fmt.Fprintf(w, "Budget Exhausted:   %d\n", stats.Exhausted)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			status := "never opened"
			if c.stats.Opened {
				status = "opened"
			}
			fmt.Fprintf(w, "  [%s] #%d %d events, duration %s, %s",
				shortenConnID(c.id), c.stats.Generation, c.stats.Events, duration, status)
			if c.stats.CloseCode != 0 {
				fmt.Fprintf(w, ", closed %d", c.stats.CloseCode)
			}
			fmt.Fprintln(w)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
