package indicator

import (
	"fmt"
	"io"
	"sync"
)

// console writes human-facing feedback lines. A nil console is silent.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) println(line string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}

func (c *console) printf(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}
