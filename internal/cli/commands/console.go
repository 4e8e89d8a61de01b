package commands

import (
	"strings"
	"sync"
	"time"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/pprint"
)

// consoleObserver prints the program log as it happens. Request and
// response dumps are only shown with --verbose.
type consoleObserver struct {
	mu      sync.Mutex
	verbose bool
	now     func() time.Time
}

func (c *consoleObserver) Notify(category, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch category {
	case v1.CategoryProgram:
		pprint.Info("%s  %s", c.now().Format("15:04:05"), message)
	default:
		if c.verbose {
			pprint.Info("%s  %s", c.now().Format("15:04:05"), strings.ToUpper(category))
			pprint.Block(message)
		}
	}
}
