package channel

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial/enumerator"
)

// Scanner is the Port Enumerator: it lists OS serial devices and polls for
// hot-plug changes. Failures of the underlying enumeration are logged and
// treated as "no change" — they never stop the poll loop.
type Scanner struct {
	logger          *log.Logger
	sink            EventSink
	excludePatterns []*regexp.Regexp

	mu       sync.Mutex
	lastSeen []string // sorted device paths from the previous poll
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScanner builds a Scanner. excludePatterns are regular expressions
// matched against a device path; matching paths are never reported.
func NewScanner(sink EventSink, logger *log.Logger, excludePatterns []string) (*Scanner, error) {
	s := &Scanner{sink: sink, logger: logger}
	for _, p := range excludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, newErr("NewScanner", KindInvalidConfig, err)
		}
		s.excludePatterns = append(s.excludePatterns, re)
	}
	return s, nil
}

// List discovers all available serial ports, excluding any path matching
// an exclude pattern.
func (s *Scanner) List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, newErr("List", KindDeviceUnavailable, err)
	}

	result := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if s.isExcluded(d.Name) {
			continue
		}
		info := PortInfo{
			Path:         d.Name,
			Manufacturer: d.Product,
			SerialNumber: d.SerialNumber,
			VendorID:     d.VID,
			ProductID:    d.PID,
			FriendlyName: d.Name,
		}
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

func (s *Scanner) isExcluded(path string) bool {
	for _, re := range s.excludePatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Start begins polling every intervalMs milliseconds, publishing a single
// ports-changed event whenever the sorted set of device paths differs from
// the previous poll.
func (s *Scanner) Start(intervalMs int) {
	if intervalMs <= 0 {
		intervalMs = 2000
	}

	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return // already running
	}
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.poll()
			}
		}
	}()
}

// Stop halts the poll loop and waits for it to exit.
func (s *Scanner) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	s.wg.Wait()
}

func (s *Scanner) poll() {
	ports, err := s.List()
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("port enumeration failed, treating as no change", "error", err)
		}
		return
	}

	paths := make([]string, len(ports))
	for i, p := range ports {
		paths[i] = p.Path
	}

	s.mu.Lock()
	changed := !equalSorted(s.lastSeen, paths)
	s.lastSeen = paths
	s.mu.Unlock()

	if changed {
		s.sink.OnPortsChanged(ports)
	}
}

func equalSorted(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
